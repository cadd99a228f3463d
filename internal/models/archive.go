// Package models defines the domain types shared by the agents and the archive.
package models

import (
	"fmt"
	"time"
)

// Category is the kind of file the archive stores.
type Category string

const (
	CategoryFrame Category = "frame"
	CategoryVideo Category = "video"
	CategoryData  Category = "data"
)

// Categories lists every archive category in route order.
var Categories = []Category{CategoryVideo, CategoryFrame, CategoryData}

// ParseCategory validates a category name from a route or config value.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryFrame, CategoryVideo, CategoryData:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Dir is the archive sub-directory holding files of this category.
func (c Category) Dir() string {
	switch c {
	case CategoryVideo:
		return "videos"
	case CategoryFrame:
		return "frames"
	default:
		return "data"
	}
}

// Ext is the only file extension accepted for this category.
func (c Category) Ext() string {
	switch c {
	case CategoryVideo:
		return ".mp4"
	case CategoryFrame:
		return ".jpg"
	default:
		return ".json"
	}
}

// ContentType is the MIME type served and uploaded for this category.
func (c Category) ContentType() string {
	switch c {
	case CategoryVideo:
		return "video/mp4"
	case CategoryFrame:
		return "image/jpeg"
	default:
		return "application/json"
	}
}

// FileMetadata is a lightweight representation returned by list operations.
type FileMetadata struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SensorReading is one capture's environmental record in the sensor log.
type SensorReading struct {
	LightLevel  int `json:"lightlevel"`
	Temperature int `json:"temperature"`
}

// SensorLog maps a frame timestamp token to the readings taken with it.
type SensorLog map[string]SensorReading
