package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CoordinateSourceManual      = "manual"
	CoordinateSourceIPDetection = "ip_detection"
)

// SoilAnalysis is one confirmed soil classification submitted by a user.
type SoilAnalysis struct {
	ID                       uuid.UUID  `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID                   uuid.UUID  `gorm:"type:varchar(36);index;not null" json:"user_id"`
	SoilTypeReferenceID      *uuid.UUID `gorm:"type:varchar(36)" json:"soil_type_reference_id"`
	ClassifiedSoilType       string     `gorm:"size:100;not null" json:"classified_soil_type"`
	SoilColor                string     `gorm:"type:text" json:"soil_color"`
	SoilTexture              string     `gorm:"type:text" json:"soil_texture"`
	SoilDrainage             string     `gorm:"type:text" json:"soil_drainage"`
	SoilLocationType         string     `gorm:"type:text" json:"soil_location_type"`
	SoilFertility            string     `gorm:"type:text" json:"soil_fertility"`
	SoilMoisture             string     `gorm:"type:text" json:"soil_moisture"`
	ClassificationConfidence *float64   `json:"classification_confidence"`
	ClassificationMethod     string     `gorm:"type:text" json:"classification_method"`
	Latitude                 float64    `json:"latitude"`
	Longitude                float64    `json:"longitude"`
	Province                 string     `gorm:"type:text" json:"province"`
	City                     string     `gorm:"type:text" json:"city"`
	CoordinateSource         string     `gorm:"size:20" json:"coordinate_source"`
	IPAddress                string     `gorm:"size:64" json:"ip_address"`
	LLMAPICalls              int        `gorm:"column:llm_api_calls;default:0" json:"llm_api_calls"`
	CreatedAt                time.Time  `json:"created_at"`

	SoilPhoto *SoilPhoto `gorm:"foreignKey:SoilAnalysisID" json:"soil_photo,omitempty"`
}

func (s *SoilAnalysis) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SoilPhoto is created when an image is classified and linked to a
// SoilAnalysis once the user confirms the classification.
type SoilPhoto struct {
	ID             uuid.UUID      `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:varchar(36);index;not null" json:"user_id"`
	SoilAnalysisID *uuid.UUID     `gorm:"type:varchar(36);index" json:"soil_analysis_id"`
	PhotoURL       string         `gorm:"size:500" json:"photo_url"`
	PhotoFilename  string         `gorm:"type:text" json:"photo_filename"`
	StorageKey     string         `gorm:"size:500" json:"-"`
	AnalysisResult datatypes.JSON `json:"analysis_result"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (p *SoilPhoto) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// SoilTypeReference holds agronomic metadata for a soil type. The soil type
// allow-list in code, not this table, decides what is a valid classification.
type SoilTypeReference struct {
	ID              uuid.UUID      `gorm:"type:varchar(36);primarykey" json:"id"`
	SoilTypeName    string         `gorm:"size:100;uniqueIndex;not null" json:"soil_type_name"`
	LocalName       string         `gorm:"type:text" json:"local_name"`
	Description     string         `gorm:"type:text" json:"description"`
	Characteristics datatypes.JSON `json:"characteristics"`
	CommonLocations string         `gorm:"type:text" json:"common_locations"`
	SuitableCrops   string         `gorm:"type:text" json:"suitable_crops"`
	ManagementTips  string         `gorm:"type:text" json:"management_tips"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (SoilTypeReference) TableName() string {
	return "soil_types_reference"
}

func (r *SoilTypeReference) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
