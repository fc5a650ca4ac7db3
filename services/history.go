package services

import (
	"gorm.io/gorm"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/models"
)

// setSubmissionStatus schreibt den Status und, falls er sich ändert, einen History-Eintrag.
// Muss innerhalb der Transaktion des Aufrufers laufen.
func setSubmissionStatus(tx *gorm.DB, sub *models.Submission, status models.SubmissionStatus, changedBy, reason string) error {
	old := sub.Status
	if err := tx.Model(&models.Submission{}).Where("id = ?", sub.ID).Update("status", status).Error; err != nil {
		return err
	}
	sub.Status = status
	if old == status {
		return nil
	}
	var oldPtr *models.SubmissionStatus
	if old != "" {
		oldPtr = &old
	}
	return tx.Create(&models.SubmissionStatusHistory{
		SubmissionID: sub.ID,
		OldStatus:    oldPtr,
		NewStatus:    status,
		ChangedBy:    changedBy,
		Reason:       reason,
	}).Error
}
