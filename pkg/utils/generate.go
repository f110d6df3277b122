package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// ==================== UUID ====================

func GenerateUUID() uuid.UUID {
	return uuid.New()
}

func ParseUUID(uuidStr string) (uuid.UUID, error) {
	return uuid.Parse(uuidStr)
}

// ==================== ORDER ID ====================

// GenerateOrderID membuat human-readable order reference.
// Format: RSV-YYYYMMDD-HHMMSS-RANDOM
func GenerateOrderID() string {
	rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now()

	datePart := now.Format("20060102")
	timePart := now.Format("150405")
	randomPart := rand.Intn(10000)

	return fmt.Sprintf("RSV-%s-%s-%04d", datePart, timePart, randomPart)
}
