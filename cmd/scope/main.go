// Terminal scope for watching an intercept unfold. Runs a local tick
// simulation against the live catalog and renders the threat, the defence
// sites and the assigned interceptor on a plan-view radar display.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mkalvans/skyfence/internal/config"
	"github.com/mkalvans/skyfence/internal/db"
	"github.com/mkalvans/skyfence/pkg/intercept"
	"github.com/mkalvans/skyfence/pkg/threat"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file")
	trackLat   = flag.Float64("lat", 56.5046, "Initial track latitude")
	trackLon   = flag.Float64("lon", 21.3000, "Initial track longitude")
	trackSpeed = flag.Float64("speed", 60, "Track speed in m/s")
	trackAlt   = flag.Float64("alt", 500, "Track altitude in metres")
	trackHdg   = flag.Float64("heading", 270, "Track heading in degrees")
	duration   = flag.Int("duration", 120, "Simulation duration in seconds")
	radiusKM   = flag.Float64("radius", 60, "Initial scope radius in km")
)

// trail stores recent geographic positions for breadcrumb display.
type trail struct {
	lats, lons []float64
	maxLength  int
}

func (t *trail) push(lat, lon float64) {
	t.lats = append(t.lats, lat)
	t.lons = append(t.lons, lon)
	if len(t.lats) > t.maxLength {
		t.lats = t.lats[1:]
		t.lons = t.lons[1:]
	}
}

type model struct {
	cfg         *config.Config
	catalogRepo *db.CatalogRepository

	initial intercept.Track
	track   intercept.Track

	sites    []db.Site
	decision intercept.Decision

	// Interceptor position for the current tick, valid when hasInterceptor.
	interceptorLat float64
	interceptorLon float64
	hasInterceptor bool

	second    int
	durationS int
	paused    bool
	done      bool
	err       error

	// Scope center is fixed at the initial track position so the picture
	// stays steady while the threat moves.
	centerLat float64
	centerLon float64
	radiusM   float64

	threatTrail      *trail
	interceptorTrail *trail

	width  int
	height int
}

type tickMsg time.Time

func (m model) tickInterval() time.Duration {
	if m.cfg.Simulation.TickIntervalSeconds > 0 {
		return time.Duration(m.cfg.Simulation.TickIntervalSeconds) * time.Second
	}
	return time.Second
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.tickInterval(), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return m.tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ":
			if !m.done {
				m.paused = !m.paused
			}
		case "r":
			m.track = m.initial
			m.second = 0
			m.done = false
			m.paused = false
			m.err = nil
			m.threatTrail = &trail{maxLength: 20}
			m.interceptorTrail = &trail{maxLength: 20}
		case "+", "=":
			if m.radiusM > 5000 {
				m.radiusM /= 1.5
			}
		case "-", "_":
			if m.radiusM < 500000 {
				m.radiusM *= 1.5
			}
		}

	case tickMsg:
		if !m.paused && !m.done {
			m.step()
		}
		return m, m.tick()
	}

	return m, nil
}

// step advances the simulation by one second: solve against a fresh catalog
// snapshot, place the interceptor, then move the threat.
func (m *model) step() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	offerings, err := m.catalogRepo.GetOfferings(ctx)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil

	m.decision = intercept.Solve(m.track, offerings)

	m.hasInterceptor = false
	if lat, lon, ok := intercept.CurrentPosition(m.decision, m.track.SecondsSinceLaunch); ok {
		m.interceptorLat = lat
		m.interceptorLon = lon
		m.hasInterceptor = true
		m.interceptorTrail.push(lat, lon)
	}

	m.threatTrail.push(m.track.Latitude, m.track.Longitude)

	m.second++
	if m.second >= m.durationS {
		m.done = true
		return
	}

	m.track = intercept.PropagateTrack(m.track, 1.0)
}

func (m model) View() string {
	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	s.WriteString(titleStyle.Render("SKYFENCE SCOPE"))
	s.WriteString("\n\n")

	scope := m.renderScope()
	info := m.renderInfo()

	scopeLines := strings.Split(scope, "\n")
	infoLines := strings.Split(info, "\n")

	maxLines := len(scopeLines)
	if len(infoLines) > maxLines {
		maxLines = len(infoLines)
	}

	for i := 0; i < maxLines; i++ {
		if i < len(scopeLines) {
			s.WriteString(scopeLines[i])
		} else {
			s.WriteString(strings.Repeat(" ", m.scopeWidth()))
		}
		s.WriteString("  ")
		if i < len(infoLines) {
			s.WriteString(infoLines[i])
		}
		s.WriteString("\n")
	}

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	s.WriteString(helpStyle.Render("SPACE: Pause  R: Restart  +/-: Zoom  Q: Quit"))
	s.WriteString("\n")

	return s.String()
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	catalogRepo := db.NewCatalogRepository(database)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	sites, err := catalogRepo.GetSites(ctx)
	cancel()
	if err != nil {
		log.Fatalf("Failed to load sites: %v", err)
	}

	track := intercept.Track{
		SpeedMS:    *trackSpeed,
		AltitudeM:  *trackAlt,
		HeadingDeg: *trackHdg,
		Latitude:   *trackLat,
		Longitude:  *trackLon,
	}

	m := model{
		cfg:              cfg,
		catalogRepo:      catalogRepo,
		initial:          track,
		track:            track,
		sites:            sites,
		durationS:        *duration,
		centerLat:        *trackLat,
		centerLon:        *trackLon,
		radiusM:          *radiusKM * 1000,
		threatTrail:      &trail{maxLength: 20},
		interceptorTrail: &trail{maxLength: 20},
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// levelStyle colours a threat level the way an operator would expect.
func levelStyle(level threat.Level) lipgloss.Style {
	switch level {
	case threat.Threat:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	case threat.PotentialThreat:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	case threat.Caution:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	}
}
