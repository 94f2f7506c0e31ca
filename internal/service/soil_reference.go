package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pageza/agrisoil/backend/internal/logger"
	"github.com/pageza/agrisoil/backend/internal/models"
	"github.com/pageza/agrisoil/backend/internal/types"
)

// SoilReferenceService maintains the soil_types_reference table.
type SoilReferenceService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSoilReferenceService(db *gorm.DB, log *logger.Logger) *SoilReferenceService {
	return &SoilReferenceService{db: db, log: log.With("service", "soil_reference")}
}

// Add inserts a reference row in its own transaction. The name must be one of
// SoilTypes and not already present.
func (s *SoilReferenceService) Add(ctx context.Context, req types.SoilTypeReferenceRequest) (*models.SoilTypeReference, error) {
	name, ok := NormalizeSoilType(req.SoilTypeName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSoilType, req.SoilTypeName)
	}

	ref := &models.SoilTypeReference{
		SoilTypeName:    name,
		LocalName:       req.LocalName,
		Description:     req.Description,
		CommonLocations: req.CommonLocations,
		SuitableCrops:   req.SuitableCrops,
		ManagementTips:  req.ManagementTips,
	}
	if len(req.Characteristics) > 0 && string(req.Characteristics) != "null" {
		ref.Characteristics = datatypes.JSON(req.Characteristics)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.SoilTypeReference{}).Where("soil_type_name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: soil type reference %q already exists", ErrConflict, name)
		}
		return tx.Create(ref).Error
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		s.log.Error("Failed to add soil type reference", "soil_type", name, "error", err)
		return nil, fmt.Errorf("failed to add soil type reference: %w", err)
	}

	s.log.Info("Soil type reference added", "soil_type", name, "id", ref.ID)
	return ref, nil
}

func (s *SoilReferenceService) List(ctx context.Context) ([]models.SoilTypeReference, error) {
	refs := []models.SoilTypeReference{}
	if err := s.db.WithContext(ctx).Order("soil_type_name ASC").Find(&refs).Error; err != nil {
		return nil, fmt.Errorf("failed to list soil type references: %w", err)
	}
	return refs, nil
}

// Get looks a reference up by name, case-insensitively.
func (s *SoilReferenceService) Get(ctx context.Context, name string) (*models.SoilTypeReference, error) {
	canonical, ok := NormalizeSoilType(name)
	if !ok {
		return nil, fmt.Errorf("%w: soil type reference %q", ErrNotFound, name)
	}
	var ref models.SoilTypeReference
	err := s.db.WithContext(ctx).Where("soil_type_name = ?", canonical).First(&ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: soil type reference %q", ErrNotFound, canonical)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load soil type reference: %w", err)
	}
	return &ref, nil
}

// Seed inserts any of DefaultSoilReferences that are missing and reports how
// many rows were created.
func (s *SoilReferenceService) Seed(ctx context.Context) (int, error) {
	created := 0
	for _, req := range DefaultSoilReferences() {
		_, err := s.Add(ctx, req)
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrConflict):
		default:
			return created, err
		}
	}
	return created, nil
}

// DefaultSoilReferences describes each entry of SoilTypes.
func DefaultSoilReferences() []types.SoilTypeReferenceRequest {
	entry := func(name, local, desc, chars, locations, crops, tips string) types.SoilTypeReferenceRequest {
		return types.SoilTypeReferenceRequest{
			SoilTypeName:    name,
			LocalName:       local,
			Description:     desc,
			Characteristics: []byte(chars),
			CommonLocations: locations,
			SuitableCrops:   crops,
			ManagementTips:  tips,
		}
	}

	return []types.SoilTypeReferenceRequest{
		entry("Alluvial Soil", "Tanah Aluvial",
			"Young soil deposited by rivers, layered and generally fertile.",
			`{"color":"Brown to Gray","texture":"Silty","drainage":"Moderately-drained","ph":"6.0-7.0"}`,
			"River plains and deltas of Java, Sumatra and Kalimantan",
			"Rice, corn, soybean, vegetables, sugarcane",
			"Keep drainage channels open in the rainy season; add organic matter after each harvest"),
		entry("Andosol Soil", "Tanah Andosol",
			"Volcanic ash soil, dark, light and rich in organic matter.",
			`{"color":"Black to Dark Brown","texture":"Loamy","drainage":"Well-drained","ph":"5.0-6.5"}`,
			"Volcanic highlands of Java, Bali, Sumatra and North Sulawesi",
			"Potato, cabbage, carrot, tea, coffee, horticulture",
			"Apply phosphate fertilizer since phosphorus is strongly fixed; terrace slopes against erosion"),
		entry("Regosol Soil", "Tanah Regosol",
			"Coarse soil from fresh volcanic or coastal sand deposits with little horizon development.",
			`{"color":"Gray to Yellowish","texture":"Sandy","drainage":"Excessively-drained","ph":"6.0-7.0"}`,
			"Volcanic slopes and coastal sand dunes",
			"Peanut, tobacco, cassava, watermelon, coconut",
			"Mulch heavily and irrigate often; add manure to hold water and nutrients"),
		entry("Latosol Soil", "Tanah Latosol",
			"Deep, weathered tropical soil, red to brown, moderately fertile.",
			`{"color":"Reddish","texture":"Clayey","drainage":"Well-drained","ph":"4.5-6.5"}`,
			"Lowland to mid-elevation areas of Java, Sumatra and Sulawesi",
			"Cocoa, coffee, rubber, cassava, fruit trees",
			"Lime acidic fields; add organic matter to improve nutrient retention"),
		entry("Podzolic Soil", "Tanah Podsolik",
			"Leached acidic soil with a pale upper layer and low fertility.",
			`{"color":"Yellowish","texture":"Sandy","drainage":"Moderately-drained","ph":"4.0-5.5"}`,
			"Kalimantan, Sumatra and Papua uplands",
			"Oil palm, rubber, pineapple, cassava",
			"Lime and fertilize with NPK regularly; keep ground cover to limit erosion"),
		entry("Grumusol Soil", "Tanah Grumusol",
			"Heavy dark clay that swells when wet and cracks when dry.",
			`{"color":"Black","texture":"Clayey","drainage":"Poorly-drained","ph":"6.5-8.0"}`,
			"Central and East Java, Nusa Tenggara",
			"Rice, sugarcane, cotton, corn, teak",
			"Plant at the start of the rainy season; use raised beds to improve drainage"),
		entry("Organosol Soil", "Tanah Gambut",
			"Peat soil formed from partially decomposed plant material, very high organic content.",
			`{"color":"Black","texture":"Peaty","drainage":"Waterlogged","ph":"3.0-5.0"}`,
			"Peat swamps of Riau, Central Kalimantan and Papua",
			"Sago, pineapple, oil palm with water management",
			"Manage water tables carefully to prevent subsidence and fire; lime and add micronutrients"),
		entry("Lithosol Soil", "Tanah Litosol",
			"Thin stony soil over bedrock with limited rooting depth.",
			`{"color":"Gray","texture":"Gravelly","drainage":"Excessively-drained","ph":"6.0-7.5"}`,
			"Steep mountain slopes and karst hills",
			"Grasses, agroforestry trees, cashew",
			"Keep permanent vegetation; avoid intensive tillage"),
		entry("Mediterranean Soil", "Tanah Mediteran",
			"Reddish soil from limestone, moderately fertile, dry in the dry season.",
			`{"color":"Reddish","texture":"Clayey","drainage":"Moderately-drained","ph":"6.0-7.5"}`,
			"Limestone regions of East Java, Nusa Tenggara and Sulawesi",
			"Corn, teak, mango, cashew, peanut",
			"Conserve moisture with mulch; plant drought-tolerant varieties"),
		entry("Rendzina Soil", "Tanah Renzina",
			"Shallow dark soil over limestone, rich in calcium.",
			`{"color":"Dark Brown","texture":"Clayey","drainage":"Well-drained","ph":"7.0-8.0"}`,
			"Karst areas such as Gunung Kidul and Central Java",
			"Teak, corn, cassava, grasses",
			"Supply iron and zinc where leaves yellow; protect the thin topsoil"),
		entry("Laterite Soil", "Tanah Laterit",
			"Strongly weathered soil rich in iron and aluminium, poor in nutrients.",
			`{"color":"Reddish","texture":"Gravelly","drainage":"Well-drained","ph":"4.5-6.0"}`,
			"Kalimantan, Bangka Belitung and parts of Sulawesi",
			"Cashew, rubber, oil palm, pineapple",
			"Add compost and lime; split fertilizer applications to reduce leaching"),
		entry("Gleysol Soil", "Tanah Glei",
			"Soil saturated with groundwater for long periods, gray with mottling.",
			`{"color":"Gray","texture":"Clayey","drainage":"Poorly-drained","ph":"5.0-7.0"}`,
			"Low-lying wetlands and river basins",
			"Rice, taro, sago, water spinach",
			"Build drainage before growing dryland crops; suits flooded rice"),
	}
}
