package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/agrisoil/backend/internal/logger"
	"github.com/pageza/agrisoil/backend/internal/models"
	"github.com/pageza/agrisoil/backend/internal/testhelpers"
)

func newTestAnalysis(t *testing.T, llm *stubLLM) (*AnalysisService, *LocalPhotoStore, *models.User) {
	db := testhelpers.SetupTestDB(t)
	user := testhelpers.CreateUser(t, db, "farmer@example.com")
	store, err := NewLocalPhotoStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	log := logger.NewNop()
	return NewAnalysisService(db, NewSoilClassifier(llm, log), store, log), store, user
}

func storedFiles(t *testing.T, dir string) []string {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files = append(files, path)
		}
		return err
	})
	require.NoError(t, err)
	return files
}

func TestAnalyze(t *testing.T) {
	llm := &stubLLM{text: strings.Replace(andosolClassification, "Andosol Soil", "andosol soil", 1)}
	svc, store, user := newTestAnalysis(t, llm)

	result, err := svc.Analyze(context.Background(), user.ID, "field.webp", []byte("webp-bytes"), ClassifyOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Andosol Soil", result.DetectedSoilType)
	assert.Equal(t, "Andosol Soil", result.Characteristics.SoilType)
	assert.Equal(t, "Dark Brown", result.Characteristics.SoilColor)
	assert.Equal(t, 100, result.Usage.InputTokens)
	require.Len(t, llm.requests, 1)
	assert.Equal(t, "image/webp", llm.requests[0].MediaType)

	require.NotNil(t, result.Photo)
	assert.Equal(t, user.ID, result.Photo.UserID)
	assert.Nil(t, result.Photo.SoilAnalysisID)
	assert.True(t, strings.HasPrefix(result.Photo.PhotoURL, "/uploads/soil-photos/"+user.ID.String()+"/"))
	assert.Equal(t, "field.webp", result.Photo.PhotoFilename)

	var stored models.SoilPhoto
	require.NoError(t, svc.db.First(&stored, "id = ?", result.Photo.ID).Error)
	var analysis map[string]interface{}
	require.NoError(t, json.Unmarshal(stored.AnalysisResult, &analysis))
	assert.Contains(t, analysis["analysis"], "SOIL_TYPE")

	assert.Len(t, storedFiles(t, store.Dir()), 1)
}

func TestAnalyzeUnsupportedSoilTypeDiscardsPhoto(t *testing.T) {
	llm := &stubLLM{text: "SOIL_TYPE: Martian Regolith\nSOIL_COLOR: Reddish"}
	svc, store, user := newTestAnalysis(t, llm)

	_, err := svc.Analyze(context.Background(), user.ID, "field.jpg", []byte("jpg"), ClassifyOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedSoilType)
	assert.Empty(t, storedFiles(t, store.Dir()))

	var count int64
	svc.db.Model(&models.SoilPhoto{}).Count(&count)
	assert.Zero(t, count)
}

func TestAnalyzeClassifierFailureDiscardsPhoto(t *testing.T) {
	llm := &stubLLM{err: &UpstreamError{Provider: ProviderClaude, Err: errors.New("overloaded")}}
	svc, store, user := newTestAnalysis(t, llm)

	_, err := svc.Analyze(context.Background(), user.ID, "field.png", []byte("png"), ClassifyOptions{})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Empty(t, storedFiles(t, store.Dir()))
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	llm := &stubLLM{text: andosolClassification}
	svc, _, user := newTestAnalysis(t, llm)

	_, err := svc.Analyze(context.Background(), user.ID, "field.gif", []byte("gif"), ClassifyOptions{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Analyze(context.Background(), user.ID, "field.png", nil, ClassifyOptions{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, llm.requests)
}
