package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	// RelativeCapacity is the number of cars kept in the relative list.
	RelativeCapacity = 20
	// StandingsCapacity is the number of entries kept in the standings list.
	StandingsCapacity = 50
	// ClassLabelSize includes the terminating zero byte.
	ClassLabelSize = 32
)

// ProducerID tags which telemetry provider produced a snapshot.
type ProducerID uint8

const (
	ProducerUnknown ProducerID = iota
	ProducerIRacing
	ProducerLMU
	ProducerRFactor2
	ProducerMock
)

var producerNames = map[ProducerID]string{
	ProducerUnknown:  "unknown",
	ProducerIRacing:  "iracing",
	ProducerLMU:      "lmu",
	ProducerRFactor2: "rfactor2",
	ProducerMock:     "mock",
}

func (p ProducerID) String() string {
	if name, ok := producerNames[p]; ok {
		return name
	}
	return fmt.Sprintf("producer(%d)", uint8(p))
}

func (p ProducerID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *ProducerID) UnmarshalText(text []byte) error {
	parsed, err := ParseProducer(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParseProducer accepts the lower case names returned by String.
func ParseProducer(name string) (ProducerID, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for id, n := range producerNames {
		if n == name {
			return id, nil
		}
	}
	return ProducerUnknown, errors.Errorf("unknown producer %q", name)
}

// ClassLabel is a zero terminated car class name that fits in a fixed layout.
type ClassLabel [ClassLabelSize]byte

// NewClassLabel truncates name to 31 bytes without splitting a rune.
func NewClassLabel(name string) ClassLabel {
	var l ClassLabel
	if len(name) > ClassLabelSize-1 {
		cut := ClassLabelSize - 1
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}
	copy(l[:], name)
	return l
}

func (l ClassLabel) String() string {
	for i, b := range l {
		if b == 0 {
			return string(l[:i])
		}
	}
	return string(l[:ClassLabelSize-1])
}

func (l ClassLabel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *ClassLabel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = NewClassLabel(s)
	return nil
}

// TelemetrySnapshot is the complete state of the player's car at one instant.
// It holds no pointers so it can be copied word by word through a seqlock.
type TelemetrySnapshot struct {
	// PublishedAt is stamped by the hub: monotonic nanoseconds since the
	// hub was created. Zero means nothing was published yet.
	PublishedAt int64 `json:"publishedAt"`

	Speed    float64 `json:"speed"`
	Throttle float64 `json:"throttle"`
	Brake    float64 `json:"brake"`
	Clutch   float64 `json:"clutch"`
	Steering float64 `json:"steering"`
	RPM      float64 `json:"rpm"`
	MaxRPM   float64 `json:"maxRpm"`

	LapDistance    float64 `json:"lapDistance"`
	TrackLength    float64 `json:"trackLength"`
	CurrentLapTime float64 `json:"currentLapTime"`
	LastLapTime    float64 `json:"lastLapTime"`
	BestLapTime    float64 `json:"bestLapTime"`

	FuelLevel    float64 `json:"fuelLevel"`
	FuelCapacity float64 `json:"fuelCapacity"`
	FuelPerLap   float64 `json:"fuelPerLap"`

	GapToLeader  float64 `json:"gapToLeader"`
	GapToNext    float64 `json:"gapToNext"`
	TrackPosNorm float64 `json:"trackPosNorm"`

	LapNumber   int32 `json:"lapNumber"`
	Position    int32 `json:"position"`
	TotalCars   int32 `json:"totalCars"`
	YellowFlags int32 `json:"yellowFlags"`
	RedFlags    int32 `json:"redFlags"`

	Producer ProducerID `json:"producer"`
	InPit    bool       `json:"inPit"`
	DNF      bool       `json:"dnf"`
}

// RelativeCarEntry describes one car near the player on track.
type RelativeCarEntry struct {
	GapTime      float64 `json:"gapTime"`
	LapDiff      float64 `json:"lapDiff"`
	TrackPosNorm float64 `json:"trackPosNorm"`
	Position     int32   `json:"position"`
	LapsAhead    int32   `json:"lapsAhead"`
	InPit        bool    `json:"inPit"`
}

// StandingsEntry is one row of the race classification.
type StandingsEntry struct {
	GapTime       float64    `json:"gapTime"`
	FuelLevel     float64    `json:"fuelLevel"`
	Position      int32      `json:"position"`
	LapsCompleted int32      `json:"lapsCompleted"`
	CarClass      ClassLabel `json:"carClass"`
	InPit         bool       `json:"inPit"`
	DNF           bool       `json:"dnf"`
}
