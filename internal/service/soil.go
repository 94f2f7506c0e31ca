package service

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pageza/agrisoil/backend/internal/logger"
	"github.com/pageza/agrisoil/backend/internal/types"
)

const soilAnalysisMaxTokens = 800

// SoilTypes is the closed soil taxonomy. A classification outside this list is
// never persisted.
var SoilTypes = []string{
	"Alluvial Soil",
	"Andosol Soil",
	"Regosol Soil",
	"Latosol Soil",
	"Podzolic Soil",
	"Grumusol Soil",
	"Organosol Soil",
	"Lithosol Soil",
	"Mediterranean Soil",
	"Rendzina Soil",
	"Laterite Soil",
	"Gleysol Soil",
}

var (
	SoilColors        = []string{"Brown", "Dark Brown", "Reddish", "Yellowish", "Black", "Gray"}
	SoilTextures      = []string{"Sandy", "Silty", "Clayey", "Loamy", "Peaty", "Gravelly"}
	SoilDrainages     = []string{"Well-drained", "Poorly-drained", "Moderately-drained", "Excessively-drained", "Waterlogged"}
	SoilLocationTypes = []string{"Valley", "Slope", "Plain", "Hill", "Riverbank", "Coastal", "Plateau"}
	SoilFertilities   = []string{"High", "Medium", "Low", "Very Low"}
	SoilMoistures     = []string{"Wet", "Moist", "Dry", "Very Dry", "Waterlogged"}
)

var allowedImageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// AllowedImageExtension reports whether filename has a png, jpg, jpeg or webp
// extension.
func AllowedImageExtension(filename string) bool {
	_, ok := allowedImageExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// MediaTypeForFilename maps an image filename to the media type sent to the
// model. Anything that is not png or webp is sent as jpeg.
func MediaTypeForFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeSoilType matches s case-insensitively against SoilTypes and returns
// the canonical spelling.
func NormalizeSoilType(s string) (string, bool) {
	needle := strings.ToLower(whitespace.ReplaceAllString(strings.TrimSpace(s), " "))
	if needle == "" {
		return "", false
	}
	for _, t := range SoilTypes {
		if strings.ToLower(t) == needle {
			return t, true
		}
	}
	return "", false
}

// soilFieldPatterns extract "FIELD: value" lines. Leading list markers and
// markdown emphasis around the label are tolerated.
var soilFieldPatterns = map[string]*regexp.Regexp{}

func init() {
	for _, field := range []string{
		"SOIL_TYPE", "SOIL_COLOR", "SOIL_TEXTURE", "SOIL_DRAINAGE",
		"SOIL_LOCATION_TYPE", "SOIL_FERTILITY", "SOIL_MOISTURE",
	} {
		soilFieldPatterns[field] = regexp.MustCompile(`(?im)^[\s\-*>#]*` + field + `[*_]*\s*:\s*[*_]*\s*(.+?)\s*$`)
	}
}

func extractField(text, field string) string {
	m := soilFieldPatterns[field].FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	value := strings.Trim(m[1], "*_[]` ")
	return strings.TrimSpace(value)
}

// ParseClassification pulls the seven soil fields out of the model's text.
// Missing fields come back empty; the soil type is returned as written.
func ParseClassification(text string) types.SoilCharacteristics {
	return types.SoilCharacteristics{
		SoilType:         extractField(text, "SOIL_TYPE"),
		SoilColor:        extractField(text, "SOIL_COLOR"),
		SoilTexture:      extractField(text, "SOIL_TEXTURE"),
		SoilDrainage:     extractField(text, "SOIL_DRAINAGE"),
		SoilLocationType: extractField(text, "SOIL_LOCATION_TYPE"),
		SoilFertility:    extractField(text, "SOIL_FERTILITY"),
		SoilMoisture:     extractField(text, "SOIL_MOISTURE"),
	}
}

// SoilClassifier sends soil photos to the generative model.
type SoilClassifier struct {
	llm LLMClient
	log *logger.Logger
}

func NewSoilClassifier(llm LLMClient, log *logger.Logger) *SoilClassifier {
	return &SoilClassifier{llm: llm, log: log.With("service", "soil")}
}

// ClassifyOptions overrides the model defaults for one call.
type ClassifyOptions struct {
	Model     string
	MaxTokens int
}

// Classify asks the model to describe the soil in image using the closed
// vocabulary from BuildSoilPrompt.
func (s *SoilClassifier) Classify(ctx context.Context, image []byte, mediaType string, opts ClassifyOptions) (*Completion, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: image is empty", ErrInvalidInput)
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = soilAnalysisMaxTokens
	}

	completion, err := s.llm.Complete(ctx, CompletionRequest{
		Model:     opts.Model,
		MaxTokens: maxTokens,
		Prompt:    BuildSoilPrompt(),
		Image:     image,
		MediaType: mediaType,
	})
	if err != nil {
		s.log.Error("Soil classification failed", "error", err)
		return nil, err
	}
	return completion, nil
}

func bulletList(values []string) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString("- ")
		b.WriteString(v)
		b.WriteString("\n")
	}
	return b.String()
}

// BuildSoilPrompt renders the classification instructions.
func BuildSoilPrompt() string {
	var b strings.Builder
	b.WriteString("Analyze this soil image and identify the soil type.\n\n")
	b.WriteString("Only choose the SOIL_TYPE from this list (do not invent new types):\n")
	b.WriteString(bulletList(SoilTypes))
	b.WriteString("\nFor each field below, choose ONLY from the provided options (or 'Unknown' if you cannot infer):\n")
	for _, section := range []struct {
		name   string
		values []string
	}{
		{"SOIL_COLOR", SoilColors},
		{"SOIL_TEXTURE", SoilTextures},
		{"SOIL_DRAINAGE", SoilDrainages},
		{"SOIL_LOCATION_TYPE", SoilLocationTypes},
		{"SOIL_FERTILITY", SoilFertilities},
		{"SOIL_MOISTURE", SoilMoistures},
	} {
		fmt.Fprintf(&b, "\n%s (choose only from):\n%s", section.name, bulletList(section.values))
	}
	b.WriteString("\nFormat your response as:\n")
	b.WriteString("SOIL_TYPE: [choose only from the list above]\n")
	b.WriteString("SOIL_COLOR: [choose only from the SOIL_COLOR list]\n")
	b.WriteString("SOIL_TEXTURE: [choose only from the SOIL_TEXTURE list]\n")
	b.WriteString("SOIL_DRAINAGE: [choose only from the SOIL_DRAINAGE list]\n")
	b.WriteString("SOIL_LOCATION_TYPE: [choose only from the SOIL_LOCATION_TYPE list]\n")
	b.WriteString("SOIL_FERTILITY: [choose only from the SOIL_FERTILITY list]\n")
	b.WriteString("SOIL_MOISTURE: [choose only from the SOIL_MOISTURE list]\n")
	return b.String()
}

// SoilText renders confirmed characteristics in the same line format the
// classifier returns, for use as recommendation prompt context.
func SoilText(c types.SoilCharacteristics) string {
	return fmt.Sprintf(
		"SOIL_TYPE: %s\nSOIL_COLOR: %s\nSOIL_TEXTURE: %s\nSOIL_DRAINAGE: %s\nSOIL_LOCATION_TYPE: %s\nSOIL_FERTILITY: %s\nSOIL_MOISTURE: %s",
		c.SoilType, c.SoilColor, c.SoilTexture, c.SoilDrainage, c.SoilLocationType, c.SoilFertility, c.SoilMoisture,
	)
}
