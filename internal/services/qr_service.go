package services

import (
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

type QRService struct{}

func NewQRService() *QRService { return &QRService{} }

// PNG encodes content as a QR code image.
func (s *QRService) PNG(content string) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, qrSize)
}
