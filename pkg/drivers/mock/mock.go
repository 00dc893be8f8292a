// Package mock is a synthetic telemetry source. It drives a fake car around
// a fake track and can be scheduled to come and go, which exercises failover
// without a simulator running.
package mock

import (
	"log/slog"
	"math"
	"time"

	"simtelemetry/pkg/model"
)

const (
	defaultLapTime     = 100 * time.Second
	defaultTrackLength = 5000.0
	defaultCars        = 12
	carInterval        = 1.5 // seconds between consecutive cars
	maxRPM             = 8000.0
	fuelCapacity       = 50.0
	fuelPerLap         = 0.5
)

// Schedule makes the source available for Up, then unavailable for Down,
// repeating. A zero Down keeps it always available.
type Schedule struct {
	Up   time.Duration
	Down time.Duration
}

func (s Schedule) available(since time.Duration) bool {
	if s.Down <= 0 || s.Up <= 0 {
		return s.Down <= 0
	}
	return since%(s.Up+s.Down) < s.Up
}

type Options struct {
	Name     string
	Producer model.ProducerID
	Schedule Schedule
	// Cars is the field size, player included.
	Cars    int
	LapTime time.Duration
	Now     func() time.Time
	Logger  *slog.Logger
}

// Driver implements source.Driver and source.ListDriver.
type Driver struct {
	name     string
	producer model.ProducerID
	schedule Schedule
	cars     int
	player   int // zero-based race position of the player
	lapTime  time.Duration
	now      func() time.Time
	log      *slog.Logger

	origin      time.Time
	connected   bool
	connectedAt time.Time
	elapsed     time.Duration
}

func New(opts Options) *Driver {
	d := &Driver{
		name:     opts.Name,
		producer: opts.Producer,
		schedule: opts.Schedule,
		cars:     opts.Cars,
		lapTime:  opts.LapTime,
		now:      opts.Now,
		log:      opts.Logger,
	}
	if d.name == "" {
		d.name = "mock"
	}
	if d.producer == model.ProducerUnknown {
		d.producer = model.ProducerMock
	}
	if d.cars <= 0 {
		d.cars = defaultCars
	}
	if d.lapTime <= 0 {
		d.lapTime = defaultLapTime
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	d.log = d.log.With("driver", d.name)
	d.player = d.cars / 2
	d.origin = d.now()
	return d
}

func (d *Driver) ID() model.ProducerID {
	return d.producer
}

func (d *Driver) Name() string {
	return d.name
}

func (d *Driver) Probe() bool {
	now := d.now()
	if !d.schedule.available(now.Sub(d.origin)) {
		return false
	}
	d.connected = true
	d.connectedAt = now
	d.elapsed = 0
	d.log.Debug("mock source connected")
	return true
}

func (d *Driver) IsLive() bool {
	return d.connected && d.schedule.available(d.now().Sub(d.origin))
}

func (d *Driver) Poll() (model.TelemetrySnapshot, bool) {
	if !d.IsLive() {
		return model.TelemetrySnapshot{}, false
	}
	d.elapsed = d.now().Sub(d.connectedAt)
	return d.snapshot(), true
}

func (d *Driver) Release() {
	if !d.connected {
		return
	}
	d.connected = false
	d.log.Debug("mock source released")
}

// RelativeCars lists the other cars nearest to the player first, alternating
// between the car ahead and the car behind.
func (d *Driver) RelativeCars(dst []model.RelativeCarEntry) (int, bool) {
	if !d.connected {
		return 0, false
	}
	lap := d.lapSeconds()
	t := d.elapsed.Seconds()
	n := 0
	for step := 1; n < len(dst) && step < d.cars; step++ {
		for _, pos := range [2]int{d.player - step, d.player + step} {
			if pos < 0 || pos >= d.cars || n == len(dst) {
				continue
			}
			gap := float64(pos-d.player) * carInterval
			lapsAhead := int32(math.Floor((t-gap)/lap) - math.Floor(t/lap))
			dst[n] = model.RelativeCarEntry{
				Position:     int32(pos + 1),
				GapTime:      gap,
				LapDiff:      -gap / lap,
				LapsAhead:    lapsAhead,
				TrackPosNorm: d.trackPosNorm(gap),
				InPit:        d.inPit(pos),
			}
			n++
		}
	}
	return n, true
}

func (d *Driver) Standings(dst []model.StandingsEntry) (int, bool) {
	if !d.connected {
		return 0, false
	}
	completed := int32(d.elapsed / d.lapTime)
	n := min(d.cars, len(dst))
	for i := 0; i < n; i++ {
		class := "HYPERCAR"
		if i%2 == 1 {
			class = "GT3"
		}
		gap := float64(i) * carInterval
		laps := completed
		if d.elapsed.Seconds() < gap {
			laps = 0
		}
		dst[i] = model.StandingsEntry{
			Position:      int32(i + 1),
			CarClass:      model.NewClassLabel(class),
			GapTime:       gap,
			LapsCompleted: laps,
			InPit:         d.inPit(i),
			FuelLevel:     d.fuel(),
		}
	}
	return n, true
}

func (d *Driver) snapshot() model.TelemetrySnapshot {
	lap := d.lapSeconds()
	t := d.elapsed.Seconds()
	completed := int(t / lap)
	inLap := t - float64(completed)*lap
	norm := inLap / lap

	// four corners per lap
	phase := math.Sin(norm * 8 * math.Pi)
	speed := 190 + 70*phase
	throttle := clamp01(0.6 + 0.6*phase)
	brake := clamp01(-0.8 * phase)

	s := model.TelemetrySnapshot{
		Speed:          speed,
		Throttle:       throttle,
		Brake:          brake,
		Steering:       0.3 * math.Cos(norm*8*math.Pi),
		RPM:            3500 + (speed/260)*(maxRPM-3500),
		MaxRPM:         maxRPM,
		LapNumber:      int32(completed + 1),
		LapDistance:    norm * defaultTrackLength,
		TrackLength:    defaultTrackLength,
		CurrentLapTime: inLap,
		FuelLevel:      d.fuel(),
		FuelCapacity:   fuelCapacity,
		FuelPerLap:     fuelPerLap,
		Position:       int32(d.player + 1),
		TotalCars:      int32(d.cars),
		GapToLeader:    float64(d.player) * carInterval,
		TrackPosNorm:   norm,
		InPit:          d.inPit(d.player),
	}
	if d.player > 0 {
		s.GapToNext = carInterval
	}
	if completed > 0 {
		s.LastLapTime = lap
		s.BestLapTime = lap
	}
	return s
}

func (d *Driver) lapSeconds() float64 {
	return d.lapTime.Seconds()
}

// trackPosNorm is where a car gap seconds behind the player is on the lap.
func (d *Driver) trackPosNorm(gap float64) float64 {
	lap := d.lapSeconds()
	norm := math.Mod(d.elapsed.Seconds()-gap, lap) / lap
	if norm < 0 {
		norm++
	}
	return norm
}

// inPit puts every fifth car in the pit lane on every other lap.
func (d *Driver) inPit(pos int) bool {
	lap := int(d.elapsed / d.lapTime)
	return lap%2 == 1 && pos%5 == 4
}

func (d *Driver) fuel() float64 {
	used := d.elapsed.Seconds() / d.lapSeconds() * fuelPerLap
	return math.Max(fuelCapacity-used, 0)
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
