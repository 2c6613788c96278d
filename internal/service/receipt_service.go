package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"path/filepath"
	"strings"
	"time"

	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/dafibh/qist/qist-backend/internal/lock"
	"github.com/dafibh/qist/qist-backend/internal/repository/storage"
	"github.com/dafibh/qist/qist-backend/internal/websocket"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	MaxReceiptSize      = 5 * 1024 * 1024 // 5MB
	MinReceiptDimension = 50
	ReceiptMaxWidth     = 1600
	ReceiptJPEGQuality  = 85
	ReceiptURLExpiry    = 15 * time.Minute
)

var (
	ErrReceiptTooLarge             = errors.New("file too large. Maximum size is 5MB")
	ErrReceiptInvalidFormat        = errors.New("invalid format. Supported: JPEG, PNG")
	ErrReceiptTooSmall             = errors.New("image too small. Minimum 50x50 pixels")
	ErrReceiptInvalidData          = errors.New("invalid image data")
	ErrReceiptNotFound             = errors.New("installment has no receipt")
	ErrReceiptStorageNotConfigured = errors.New("receipt storage not configured")
)

// AllowedReceiptExtensions lists accepted upload extensions
var AllowedReceiptExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// ReceiptInfo describes a stored receipt
type ReceiptInfo struct {
	PlanID            uuid.UUID `json:"planId"`
	InstallmentNumber int32     `json:"installmentNumber"`
	Path              string    `json:"path"`
	URL               string    `json:"url,omitempty"`
	ExpiresAt         time.Time `json:"expiresAt,omitempty"`
}

// ReceiptService attaches payment receipt images to paid installments
type ReceiptService struct {
	storage        storage.ReceiptStorage
	planRepo       domain.PlanRepository
	locker         lock.Locker
	eventPublisher websocket.EventPublisher
	now            func() time.Time
}

// NewReceiptService creates a new ReceiptService. storage may be nil, in
// which case uploads fail with ErrReceiptStorageNotConfigured.
func NewReceiptService(storage storage.ReceiptStorage, planRepo domain.PlanRepository, locker lock.Locker) *ReceiptService {
	return &ReceiptService{
		storage:  storage,
		planRepo: planRepo,
		locker:   locker,
		now:      time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ReceiptService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// IsEnabled indicates whether receipt storage is configured
func (s *ReceiptService) IsEnabled() bool {
	return s != nil && s.storage != nil
}

// NormalizeReceipt validates an uploaded image and re-encodes it as a JPEG
// no wider than ReceiptMaxWidth, honouring EXIF orientation.
func NormalizeReceipt(data []byte, filename string) ([]byte, error) {
	if len(data) > MaxReceiptSize {
		return nil, ErrReceiptTooLarge
	}
	if !AllowedReceiptExtensions[strings.ToLower(filepath.Ext(filename))] {
		return nil, ErrReceiptInvalidFormat
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrReceiptInvalidData
	}

	bounds := img.Bounds()
	if bounds.Dx() < MinReceiptDimension || bounds.Dy() < MinReceiptDimension {
		return nil, ErrReceiptTooSmall
	}
	if bounds.Dx() > ReceiptMaxWidth {
		img = imaging.Resize(img, ReceiptMaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: ReceiptJPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode receipt: %w", err)
	}
	return buf.Bytes(), nil
}

// AttachReceipt stores an image and links it to a paid installment,
// replacing any previous receipt.
func (s *ReceiptService) AttachReceipt(ctx context.Context, caller domain.Caller, planID uuid.UUID, number int32, data []byte, filename string) (*ReceiptInfo, error) {
	if !caller.IsStaff() {
		return nil, domain.ErrForbidden
	}
	if !s.IsEnabled() {
		return nil, ErrReceiptStorageNotConfigured
	}

	encoded, err := NormalizeReceipt(data, filename)
	if err != nil {
		return nil, err
	}

	objectPath := fmt.Sprintf("receipts/%s/%d/%s.jpg", planID, number, uuid.New())
	if _, err := s.storage.Upload(ctx, objectPath, bytes.NewReader(encoded), "image/jpeg", int64(len(encoded))); err != nil {
		return nil, err
	}

	var previous string
	plan, err := mutatePlan(ctx, s.planRepo, s.locker, DefaultLockTimeout, s.now, planID, func(plan *domain.Plan, now time.Time) error {
		target, err := plan.Installment(number)
		if err != nil {
			return err
		}
		if !target.IsPaid() {
			return domain.ErrInstallmentNotPaid
		}
		if target.ReceiptPath != nil {
			previous = *target.ReceiptPath
		}
		path := objectPath
		target.ReceiptPath = &path
		target.UpdatedAt = now
		return nil
	})
	if err != nil {
		s.deleteQuietly(ctx, objectPath)
		return nil, err
	}
	if previous != "" {
		s.deleteQuietly(ctx, previous)
	}

	info := &ReceiptInfo{PlanID: planID, InstallmentNumber: number, Path: objectPath}
	log.Info().Str("plan_id", planID.String()).Int32("installment_number", number).Msg("Receipt attached")
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(plan.CustomerID, websocket.ReceiptAttached(planID.String(), info))
	}
	return info, nil
}

// ReceiptURL returns a presigned URL for an installment's receipt
func (s *ReceiptService) ReceiptURL(ctx context.Context, caller domain.Caller, planID uuid.UUID, number int32) (*ReceiptInfo, error) {
	if !s.IsEnabled() {
		return nil, ErrReceiptStorageNotConfigured
	}

	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !caller.CanView(plan) {
		return nil, domain.ErrForbidden
	}
	target, err := plan.Installment(number)
	if err != nil {
		return nil, err
	}
	if target.ReceiptPath == nil {
		return nil, ErrReceiptNotFound
	}

	url, err := s.storage.GeneratePresignedURL(ctx, *target.ReceiptPath, ReceiptURLExpiry)
	if err != nil {
		return nil, err
	}
	return &ReceiptInfo{
		PlanID:            planID,
		InstallmentNumber: number,
		Path:              *target.ReceiptPath,
		URL:               url,
		ExpiresAt:         s.now().Add(ReceiptURLExpiry).UTC(),
	}, nil
}

func (s *ReceiptService) deleteQuietly(ctx context.Context, objectPath string) {
	if err := s.storage.Delete(ctx, objectPath); err != nil {
		log.Warn().Err(err).Str("object_path", objectPath).Msg("Failed to delete receipt object")
	}
}
