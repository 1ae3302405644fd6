package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusOK        = "ok"
	StatusAttention = "attention"
	StatusFaulty    = "faulty"
)

var Statuses = []string{StatusOK, StatusAttention, StatusFaulty}

type Entry struct {
	ID              snowflake.ID      `gorm:"primaryKey"`
	DeviceName      string            `gorm:"column:device_name;type:text;not null"`
	AssignedTo      string            `gorm:"column:assigned_to;type:text;not null"`
	Department      *string           `gorm:"type:text;index"`
	Location        *string           `gorm:"type:text"`
	DeviceType      *string           `gorm:"column:device_type;type:text"`
	SerialNumber    *string           `gorm:"column:serial_number;type:text"`
	OS              *string           `gorm:"column:os;type:text"`
	CPU             *string           `gorm:"column:cpu;type:text"`
	RAMGB           *float64          `gorm:"column:ram_gb"`
	StorageGB       *float64          `gorm:"column:storage_gb"`
	AntivirusStatus *string           `gorm:"column:antivirus_status;type:text"`
	LastCheckedAt   *time.Time        `gorm:"column:last_checked_at"`
	Status          string            `gorm:"type:text;not null;index"`
	Notes           *string           `gorm:"type:text"`
	Hardware        datatypes.JSONMap `gorm:"column:hardware"`
	CreatedBy       *snowflake.ID     `gorm:"column:created_by"`
	CreatedAt       time.Time         `gorm:"not null"`
	UpdatedAt       time.Time         `gorm:"not null"`
}

func (Entry) TableName() string { return "it_check_entries" }

type SpeedTest struct {
	ID           string       `gorm:"primaryKey;type:text"`
	EntryID      snowflake.ID `gorm:"column:entry_id;not null;index"`
	Position     int          `gorm:"not null"`
	DownloadMbps *float64     `gorm:"column:download_mbps"`
	UploadMbps   *float64     `gorm:"column:upload_mbps"`
	PingMs       *float64     `gorm:"column:ping_ms"`
	TestedAt     *time.Time   `gorm:"column:tested_at"`
	Provider     *string      `gorm:"type:text"`
}

func (SpeedTest) TableName() string { return "it_check_speed_tests" }

type InstalledApp struct {
	ID        string       `gorm:"primaryKey;type:text"`
	EntryID   snowflake.ID `gorm:"column:entry_id;not null;index"`
	Position  int          `gorm:"not null"`
	Name      string       `gorm:"type:text;not null"`
	Version   *string      `gorm:"type:text"`
	Publisher *string      `gorm:"type:text"`
	Licensed  bool         `gorm:"not null"`
}

func (InstalledApp) TableName() string { return "it_check_installed_apps" }

type ListFilter struct {
	Status     string
	Department string
	Search     string
}
