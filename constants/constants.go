package constants

import (
	"os"
	"path/filepath"
	"time"
)

const DefaultStabilityWindow = 40 * time.Millisecond

// Stability windows outside this range are honoured but logged as an advisory.
const (
	MinRecommendedStabilityWindow = 10 * time.Millisecond
	MaxRecommendedStabilityWindow = 100 * time.Millisecond
)

const DefaultMinHoldDuration = 500 * time.Millisecond

const DefaultFeedbackDuration = 1500 * time.Millisecond

const DefaultDifficulty = "beginner"

const DefaultSessionLength = 10

const DefaultListenAddr = ":8080"

// 31250 is the MIDI DIN baud rate.
const DefaultSerialBaud = 31250

const DefaultExportRegion = "us-east-1"

// DynamoDB rejects batches larger than this.
const MaxBatchWriteItems = 25

const EnvPrefix = "CHORDCOACH"

func GetConfigDir() string {
	path := os.Getenv("CHORDCOACH_HOME")
	if path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chordcoach"
	}
	return filepath.Join(home, ".config", "chordcoach")
}
