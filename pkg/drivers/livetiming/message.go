package livetiming

import "encoding/json"

const (
	mtStandings   = "standings"
	mtSessionInfo = "sessionInfo"
)

// Message is one frame of the dedicated server's control panel websocket.
type Message struct {
	MessageType string          `json:"type"`
	Body        json.RawMessage `json:"body,omitempty"`
}

type CarVelocity struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Velocity float64 `json:"velocity"`
}

// Standing is one car of a standings message. Only the fields the driver
// uses are decoded.
type Standing struct {
	SlotID           int         `json:"slotID"`
	DriverName       string      `json:"driverName"`
	LapsCompleted    int         `json:"lapsCompleted"`
	FinishStatus     string      `json:"finishStatus"`
	LapDistance      float64     `json:"lapDistance"`
	BestLapTime      float64     `json:"bestLapTime"`
	LastLapTime      float64     `json:"lastLapTime"`
	Player           bool        `json:"player"`
	Pitting          bool        `json:"pitting"`
	Position         int         `json:"position"`
	CarClass         string      `json:"carClass"`
	TimeBehindNext   float64     `json:"timeBehindNext"`
	TimeBehindLeader float64     `json:"timeBehindLeader"`
	CarVelocity      CarVelocity `json:"carVelocity"`
	PitState         string      `json:"pitState"`
	TimeIntoLap      float64     `json:"timeIntoLap"`
	EstimatedLapTime float64     `json:"estimatedLapTime"`
	InGarageStall    bool        `json:"inGarageStall"`
	HasFocus         bool        `json:"hasFocus"`
	FuelFraction     float64     `json:"fuelFraction"`
}

type SessionInfo struct {
	TrackName        string   `json:"trackName"`
	Session          string   `json:"session"`
	LapDistance      float64  `json:"lapDistance"`
	NumberOfVehicles int      `json:"numberOfVehicles"`
	GamePhase        int      `json:"gamePhase"`
	YellowFlagState  string   `json:"yellowFlagState"`
	SectorFlag       []string `json:"sectorFlag"`
	PlayerName       string   `json:"playerName"`
	ServerName       string   `json:"serverName"`
}
