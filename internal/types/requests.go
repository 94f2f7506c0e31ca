package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coordinate is a latitude or longitude. Clients send it either as a JSON
// number or as a numeric string, so both forms decode to the same value.
type Coordinate float64

// NewCoordinate returns a pointer to v as a Coordinate.
func NewCoordinate(v float64) *Coordinate {
	c := Coordinate(v)
	return &c
}

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		return nil
	case float64:
		return c.set(v)
	case string:
		return c.UnmarshalParam(v)
	default:
		return fmt.Errorf("coordinate must be a number or numeric string, got %s", data)
	}
}

// UnmarshalParam decodes a coordinate from a query or form value.
func (c *Coordinate) UnmarshalParam(param string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(param), 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %q", param)
	}
	return c.set(v)
}

func (c *Coordinate) set(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("invalid coordinate %v", v)
	}
	*c = Coordinate(v)
	return nil
}

// Float64 returns the coordinate as a *float64, nil when c is nil.
func (c *Coordinate) Float64() *float64 {
	if c == nil {
		return nil
	}
	v := float64(*c)
	return &v
}

// RegisterRequest represents the request body for account registration
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Province    string `json:"province"`
	City        string `json:"city"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SoilCharacteristics is the seven-field soil description produced by the
// classifier and confirmed (possibly edited) by the user.
type SoilCharacteristics struct {
	SoilType         string `json:"classified_soil_type"`
	SoilColor        string `json:"soil_color"`
	SoilTexture      string `json:"soil_texture"`
	SoilDrainage     string `json:"soil_drainage"`
	SoilLocationType string `json:"soil_location_type"`
	SoilFertility    string `json:"soil_fertility"`
	SoilMoisture     string `json:"soil_moisture"`
}

// SoilSubmitRequest is the body of POST /soil/submit
type SoilSubmitRequest struct {
	SoilCharacteristics
	Lat                      *Coordinate `json:"lat"`
	Lon                      *Coordinate `json:"lon"`
	SoilPhotoID              string      `json:"soil_photo_id"`
	Province                 string      `json:"province"`
	City                     string      `json:"city"`
	ClassificationConfidence *float64    `json:"classification_confidence"`
	ClassificationMethod     string      `json:"classification_method"`
}

// CropRecommendRequest is the body (or query) of /crops/recommend
type CropRecommendRequest struct {
	Lat          *Coordinate `json:"lat" form:"lat"`
	Lon          *Coordinate `json:"lon" form:"lon"`
	SoilAnalysis string      `json:"soil_analysis" form:"soil_analysis"`
	Model        string      `json:"model" form:"model"`
	MaxTokens    int         `json:"max_tokens" form:"max_tokens"`
}

// ChatRequest is the body of POST /llm/chat
type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
}

// SoilTypeReferenceRequest is the body of POST /soil-type-reference/add
type SoilTypeReferenceRequest struct {
	SoilTypeName    string          `json:"soil_type_name" binding:"required"`
	LocalName       string          `json:"local_name"`
	Description     string          `json:"description"`
	Characteristics json.RawMessage `json:"characteristics"`
	CommonLocations string          `json:"common_locations"`
	SuitableCrops   string          `json:"suitable_crops"`
	ManagementTips  string          `json:"management_tips"`
}
