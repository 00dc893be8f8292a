package livetiming

import (
	"math"
	"sort"
	"strings"

	"simtelemetry/pkg/model"
)

const (
	// the live timing feed carries neither fuel capacity nor engine data
	fuelCapacity = 50.0
	fuelPerLap   = 0.5
	maxRPM       = 8000.0

	phaseSessionStopped = 7
)

// player finds the player's car, falling back to the focused one.
func player(standings []Standing) (Standing, bool) {
	for _, s := range standings {
		if s.Player {
			return s, true
		}
	}
	for _, s := range standings {
		if s.HasFocus {
			return s, true
		}
	}
	return Standing{}, false
}

func deriveTelemetry(standings []Standing, session SessionInfo) model.TelemetrySnapshot {
	s := model.TelemetrySnapshot{
		MaxRPM:       maxRPM,
		FuelCapacity: fuelCapacity,
		FuelPerLap:   fuelPerLap,
		TrackLength:  session.LapDistance,
		TotalCars:    int32(max(len(standings), session.NumberOfVehicles, 1)),
		YellowFlags:  int32(yellowSectors(session)),
	}
	if session.GamePhase == phaseSessionStopped {
		s.RedFlags = 1
	}

	p, ok := player(standings)
	if !ok {
		return s
	}
	s.Speed = p.CarVelocity.Velocity * 3.6
	s.LapNumber = int32(p.LapsCompleted + 1)
	s.LapDistance = p.LapDistance
	s.CurrentLapTime = p.TimeIntoLap
	s.LastLapTime = p.LastLapTime
	s.BestLapTime = p.BestLapTime
	s.FuelLevel = p.FuelFraction * fuelCapacity
	s.Position = int32(p.Position)
	s.GapToLeader = p.TimeBehindLeader
	s.GapToNext = p.TimeBehindNext
	s.InPit = inPit(p)
	s.DNF = retired(p)
	if session.LapDistance > 0 {
		s.TrackPosNorm = normalize(p.LapDistance / session.LapDistance)
	}
	return s
}

func yellowSectors(session SessionInfo) int {
	n := 0
	for _, f := range session.SectorFlag {
		if strings.Contains(strings.ToUpper(f), "YELLOW") {
			n++
		}
	}
	return n
}

func inPit(s Standing) bool {
	return s.Pitting || s.InGarageStall
}

func retired(s Standing) bool {
	return s.FinishStatus == "FSTAT_DNF" || s.FinishStatus == "FSTAT_DQ"
}

// deriveStandings sorts by race position and fills dst.
func deriveStandings(standings []Standing, dst []model.StandingsEntry) int {
	sorted := append([]Standing(nil), standings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})
	n := min(len(sorted), len(dst))
	for i, s := range sorted[:n] {
		dst[i] = model.StandingsEntry{
			Position:      int32(s.Position),
			CarClass:      model.NewClassLabel(s.CarClass),
			GapTime:       s.TimeBehindLeader,
			LapsCompleted: int32(s.LapsCompleted),
			InPit:         inPit(s),
			DNF:           retired(s),
			FuelLevel:     s.FuelFraction * fuelCapacity,
		}
	}
	return n
}

// deriveRelative lists the other cars by on-track distance to the player,
// nearest first. Gaps are estimated from the player's lap time; a negative
// gap means the car is ahead on track.
func deriveRelative(standings []Standing, trackLength float64, dst []model.RelativeCarEntry) int {
	p, ok := player(standings)
	if !ok || trackLength <= 0 {
		return 0
	}
	lapTime := p.EstimatedLapTime
	if lapTime <= 0 {
		lapTime = p.BestLapTime
	}

	type near struct {
		s     Standing
		delta float64 // laps, in [-0.5, 0.5)
	}
	cars := make([]near, 0, len(standings))
	for _, s := range standings {
		if s.SlotID == p.SlotID {
			continue
		}
		d := (s.LapDistance - p.LapDistance) / trackLength
		cars = append(cars, near{s: s, delta: d - math.Floor(d+0.5)})
	}
	sort.SliceStable(cars, func(i, j int) bool {
		return math.Abs(cars[i].delta) < math.Abs(cars[j].delta)
	})

	playerProgress := float64(p.LapsCompleted) + p.LapDistance/trackLength
	n := min(len(cars), len(dst))
	for i, c := range cars[:n] {
		lapDiff := float64(c.s.LapsCompleted) + c.s.LapDistance/trackLength - playerProgress
		dst[i] = model.RelativeCarEntry{
			Position:     int32(c.s.Position),
			GapTime:      -c.delta * lapTime,
			LapDiff:      lapDiff,
			LapsAhead:    int32(math.Round(lapDiff - c.delta)),
			TrackPosNorm: normalize(c.s.LapDistance / trackLength),
			InPit:        inPit(c.s),
		}
	}
	return n
}

func normalize(v float64) float64 {
	return v - math.Floor(v)
}
