// Package console periodically prints the published telemetry as tables.
package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"simtelemetry/pkg/helper"
	"simtelemetry/pkg/model"
	"simtelemetry/pkg/source"
	"simtelemetry/pkg/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// standingsRows caps the standings table so a dump fits a terminal.
const standingsRows = 10

type SourceStatus interface {
	Status() source.Status
}

type Dumper struct {
	reader   telemetry.Reader
	status   SourceStatus
	out      io.Writer
	interval time.Duration
	log      *slog.Logger

	relative  [model.RelativeCapacity]model.RelativeCarEntry
	standings [model.StandingsCapacity]model.StandingsEntry
}

func NewDumper(reader telemetry.Reader, status SourceStatus, out io.Writer, interval time.Duration, logger *slog.Logger) *Dumper {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Dumper{
		reader:   reader,
		status:   status,
		out:      out,
		interval: interval,
		log:      logger.With("component", "console"),
	}
}

// Run dumps every interval until ctx is done.
func (d *Dumper) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.Dump(); err != nil {
				d.log.Warn("error writing console dump", "error", err)
			}
		}
	}
}

// Dump writes one set of tables.
func (d *Dumper) Dump() error {
	s := d.reader.ReadTelemetry()
	relative := d.relative[:d.reader.ReadRelativeCarsInto(d.relative[:])]
	standings := d.standings[:d.reader.ReadStandingsInto(d.standings[:])]

	if _, err := fmt.Fprintln(d.out, d.header()); err != nil {
		return err
	}
	for _, t := range []table.Writer{telemetryTable(s), relativeTable(relative), standingsTable(standings)} {
		if _, err := fmt.Fprintln(d.out, t.Render()); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dumper) header() string {
	st := d.status.Status()
	if !st.Bound {
		return "source: none, waiting for a simulator"
	}
	age := "-"
	if a, ok := d.reader.TelemetryAge(); ok {
		age = a.Round(time.Millisecond).String()
	}
	return fmt.Sprintf("source: %s (%s), frame age %s", st.Driver, st.Producer, age)
}

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	return t
}

func telemetryTable(s model.TelemetrySnapshot) table.Writer {
	t := newTable("Telemetry")
	t.AppendHeader(table.Row{"LAP", "POS", "SPEED", "RPM", "THR", "BRK", "FUEL", "LAST", "BEST", "GAP"})
	t.AppendRow(table.Row{
		s.LapNumber,
		fmt.Sprintf("%d/%d", s.Position, s.TotalCars),
		fmt.Sprintf("%.0f", s.Speed),
		fmt.Sprintf("%.0f", s.RPM),
		helper.Percent(s.Throttle),
		helper.Percent(s.Brake),
		fmt.Sprintf("%.1f/%.0f", s.FuelLevel, s.FuelCapacity),
		helper.SecondsToMinutes(s.LastLapTime),
		helper.SecondsToMinutes(s.BestLapTime),
		helper.SecondsToDiff(s.GapToLeader),
	})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}, {Number: 4, Align: text.AlignRight}})
	return t
}

func relativeTable(entries []model.RelativeCarEntry) table.Writer {
	t := newTable("Relative")
	t.AppendHeader(table.Row{"POS", "GAP", "LAPS", "PIT"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Position, helper.SignedGap(e.GapTime), fmt.Sprintf("%+d", e.LapsAhead), pit(e.InPit)})
	}
	return t
}

func standingsTable(entries []model.StandingsEntry) table.Writer {
	t := newTable("Standings")
	t.AppendHeader(table.Row{"POS", "CLASS", "LAPS", "GAP", "FUEL", "PIT"})
	for _, e := range entries[:min(len(entries), standingsRows)] {
		status := pit(e.InPit)
		if e.DNF {
			status = "DNF"
		}
		t.AppendRow(table.Row{e.Position, e.CarClass.String(), e.LapsCompleted, helper.SecondsToDiff(e.GapTime), fmt.Sprintf("%.1f", e.FuelLevel), status})
	}
	if len(entries) > standingsRows {
		t.AppendFooter(table.Row{"", fmt.Sprintf("+%d more", len(entries)-standingsRows)})
	}
	return t
}

func pit(in bool) string {
	if in {
		return "PIT"
	}
	return ""
}
