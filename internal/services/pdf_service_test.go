package services

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderReportProducesPDF(t *testing.T) {
	report := "# Your Personalized Burnout Recovery Report\n\n## 1. Introduction\nHello **Ada**, welcome.\n\n- first step\n* second step\n---\nDone."

	out, err := NewPDFService().RenderReport("Ada Lovelace", report)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestQRServicePNG(t *testing.T) {
	png, err := NewQRService().PNG("https://shop.example/l/report?wanted=true")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "bold and code", stripMarkup("**bold** and `code`"))
}
