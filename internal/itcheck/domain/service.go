package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type SpeedTestInput struct {
	DownloadMbps *float64 `json:"downloadMbps"`
	UploadMbps   *float64 `json:"uploadMbps"`
	PingMs       *float64 `json:"pingMs"`
	TestedAt     *string  `json:"testedAt"`
	Provider     *string  `json:"provider"`
}

type InstalledAppInput struct {
	Name      string  `json:"name"`
	Version   *string `json:"version"`
	Publisher *string `json:"publisher"`
	Licensed  bool    `json:"licensed"`
}

type EntryFields struct {
	DeviceName      string              `json:"deviceName"`
	AssignedTo      string              `json:"assignedTo"`
	Department      *string             `json:"department"`
	Location        *string             `json:"location"`
	DeviceType      *string             `json:"deviceType"`
	SerialNumber    *string             `json:"serialNumber"`
	OS              *string             `json:"os"`
	CPU             *string             `json:"cpu"`
	RAMGB           *float64            `json:"ramGb"`
	StorageGB       *float64            `json:"storageGb"`
	AntivirusStatus *string             `json:"antivirusStatus"`
	LastCheckedAt   *string             `json:"lastCheckedAt"`
	Status          *string             `json:"status"`
	Notes           *string             `json:"notes"`
	Hardware        map[string]any      `json:"hardware"`
	SpeedTests      []SpeedTestInput    `json:"speedTests"`
	InstalledApps   []InstalledAppInput `json:"installedApps"`
}

type CreateEntryRequest struct {
	EntryFields
}

type UpdateEntryRequest struct {
	EntryFields
}

type ListEntryRequest struct {
	Status     string
	Department string
	Search     string
}

type SpeedTestResponse struct {
	ID           string   `json:"id"`
	DownloadMbps *float64 `json:"downloadMbps"`
	UploadMbps   *float64 `json:"uploadMbps"`
	PingMs       *float64 `json:"pingMs"`
	TestedAt     *string  `json:"testedAt"`
	Provider     *string  `json:"provider"`
}

type InstalledAppResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Version   *string `json:"version"`
	Publisher *string `json:"publisher"`
	Licensed  bool    `json:"licensed"`
}

type EntryResponse struct {
	ID              string                 `json:"id"`
	DeviceName      string                 `json:"deviceName"`
	AssignedTo      string                 `json:"assignedTo"`
	Department      *string                `json:"department"`
	Location        *string                `json:"location"`
	DeviceType      *string                `json:"deviceType"`
	SerialNumber    *string                `json:"serialNumber"`
	OS              *string                `json:"os"`
	CPU             *string                `json:"cpu"`
	RAMGB           *float64               `json:"ramGb"`
	StorageGB       *float64               `json:"storageGb"`
	AntivirusStatus *string                `json:"antivirusStatus"`
	LastCheckedAt   *time.Time             `json:"lastCheckedAt"`
	Status          string                 `json:"status"`
	Notes           *string                `json:"notes"`
	Hardware        map[string]any         `json:"hardware"`
	SpeedTests      []SpeedTestResponse    `json:"speedTests"`
	InstalledApps   []InstalledAppResponse `json:"installedApps"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) error
	Update(ctx context.Context, db *gorm.DB, entry *Entry) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Entry, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Entry, error)
	ReplaceSpeedTests(ctx context.Context, db *gorm.DB, entryID snowflake.ID, rows []SpeedTest) error
	ReplaceInstalledApps(ctx context.Context, db *gorm.DB, entryID snowflake.ID, rows []InstalledApp) error
	ListSpeedTests(ctx context.Context, db *gorm.DB, entryIDs []snowflake.ID) (map[snowflake.ID][]SpeedTest, error)
	ListInstalledApps(ctx context.Context, db *gorm.DB, entryIDs []snowflake.ID) (map[snowflake.ID][]InstalledApp, error)
}

type Service interface {
	List(ctx context.Context, req ListEntryRequest) ([]EntryResponse, error)
	Get(ctx context.Context, id string) (*EntryResponse, error)
	Create(ctx context.Context, req CreateEntryRequest) (*EntryResponse, error)
	Update(ctx context.Context, id string, req UpdateEntryRequest) (*EntryResponse, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidDeviceName    = errors.New("invalid_device_name")
	ErrInvalidAssignedTo    = errors.New("invalid_assigned_to")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrInvalidLastCheckedAt = errors.New("invalid_last_checked_at")
	ErrInvalidCapacity      = errors.New("invalid_capacity")
	ErrInvalidSpeedTest     = errors.New("invalid_speed_test")
	ErrInvalidInstalledApp  = errors.New("invalid_installed_app")
	ErrNotFound             = errors.New("not_found")
)
