package store

import (
	"crypto/rand"
	"encoding/hex"
)

const (
	layerIDPrefix = "ly-"
	drawnIDPrefix = "ft-"
)

// generateLayerID generates a unique layer ID
func generateLayerID() (string, error) {
	bytes := make([]byte, 3) // 6 hex characters - balances brevity with collision resistance
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return layerIDPrefix + hex.EncodeToString(bytes), nil
}

// generateDrawnID generates a unique drawn-feature ID
func generateDrawnID() (string, error) {
	bytes := make([]byte, 3)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return drawnIDPrefix + hex.EncodeToString(bytes), nil
}
