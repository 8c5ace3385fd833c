package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mkalvans/skyfence/pkg/geodesy"
)

// Terminal characters are roughly 2:1 (height:width), so X distances are
// halved to keep range rings round.
const aspectRatio = 0.5

func (m model) scopeWidth() int {
	w := m.width - 44 // reserve space for the info panel
	if w < 80 {
		w = 80
	}
	return w
}

func (m model) scopeHeight() int {
	h := m.height - 8
	if h < 30 {
		h = 30
	}
	return h
}

func (m model) maxScreenRadius() float64 {
	maxY := float64(m.scopeHeight()/2 - 2)
	maxX := float64(m.scopeWidth()/2-2) * aspectRatio
	if maxX < maxY {
		return maxX
	}
	return maxY
}

// scopeToScreen converts a geographic position to grid coordinates relative
// to the scope center. Returns -1,-1 when outside the scope radius.
func (m model) scopeToScreen(lat, lon float64) (int, int) {
	distM := geodesy.GreatCircleDistance(m.centerLat, m.centerLon, lat, lon)
	if distM > m.radiusM {
		return -1, -1
	}

	bearing := geodesy.Bearing(m.centerLat, m.centerLon, lat, lon)

	scale := m.maxScreenRadius() / m.radiusM
	bearingRad := bearing * geodesy.DegreesToRadians
	screenDist := distM * scale

	// Bearing 0 is north which is up, so Y decreases with cos.
	dx := int(screenDist * math.Sin(bearingRad) / aspectRatio)
	dy := -int(screenDist * math.Cos(bearingRad))

	x := (m.scopeWidth()-2)/2 + dx
	y := m.scopeHeight()/2 + dy

	if x < 0 || x >= m.scopeWidth()-2 || y < 0 || y >= m.scopeHeight() {
		return -1, -1
	}

	return x, y
}

// renderScope renders the plan-view radar display.
func (m model) renderScope() string {
	var scope strings.Builder

	scopeWidth := m.scopeWidth()
	scopeHeight := m.scopeHeight()

	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	scope.WriteString(borderStyle.Render("┌" + strings.Repeat("─", scopeWidth-2) + "┐"))
	scope.WriteString("\n")

	grid := make([][]rune, scopeHeight)
	for i := range grid {
		grid[i] = make([]rune, scopeWidth)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	centerX := (scopeWidth - 2) / 2
	centerY := scopeHeight / 2
	maxScreenRadius := m.maxScreenRadius()
	scale := maxScreenRadius / m.radiusM

	// Range rings at nice kilometre intervals, capped so the display stays
	// readable.
	ringIntervals := []float64{5000, 10000, 25000, 50000, 100000}
	var ringDistances []float64
	for _, interval := range ringIntervals {
		ringDistances = ringDistances[:0]
		for dist := interval; dist < m.radiusM; dist += interval {
			ringDistances = append(ringDistances, dist)
		}
		if len(ringDistances) <= 5 {
			break
		}
	}

	for _, ringDist := range ringDistances {
		screenRadius := int(ringDist * scale)
		drawCircle(grid, centerX, centerY, screenRadius, '─')

		label := fmt.Sprintf("%.0fkm", ringDist/1000)
		labelY := centerY - screenRadius
		labelX := centerX - len(label)/2
		if labelY >= 0 && labelY < scopeHeight && labelX >= 0 && labelX+len(label) < scopeWidth-2 {
			for j, ch := range label {
				grid[labelY][labelX+j] = ch
			}
		}
	}

	// Cardinal directions
	if centerY-int(maxScreenRadius) >= 0 {
		grid[centerY-int(maxScreenRadius)][centerX] = 'N'
	}
	if eastX := centerX + int(maxScreenRadius/aspectRatio); eastX < scopeWidth-2 {
		grid[centerY][eastX] = 'E'
	}
	if centerY+int(maxScreenRadius) < scopeHeight {
		grid[centerY+int(maxScreenRadius)][centerX] = 'S'
	}
	if westX := centerX - int(maxScreenRadius/aspectRatio); westX >= 0 {
		grid[centerY][westX] = 'W'
	}

	// Defence sites
	for _, site := range m.sites {
		if x, y := m.scopeToScreen(site.Latitude, site.Longitude); x >= 0 {
			grid[y][x] = '△'
		}
	}

	// Breadcrumb trails
	for i := 0; i < len(m.threatTrail.lats)-1; i++ {
		if x, y := m.scopeToScreen(m.threatTrail.lats[i], m.threatTrail.lons[i]); x >= 0 {
			if grid[y][x] == ' ' || grid[y][x] == '─' {
				grid[y][x] = '·'
			}
		}
	}
	for i := 0; i < len(m.interceptorTrail.lats)-1; i++ {
		if x, y := m.scopeToScreen(m.interceptorTrail.lats[i], m.interceptorTrail.lons[i]); x >= 0 {
			if grid[y][x] == ' ' || grid[y][x] == '─' {
				grid[y][x] = '·'
			}
		}
	}

	// Predicted intercept point
	if a := m.decision.Assignment; a != nil {
		if x, y := m.scopeToScreen(a.InterceptLat, a.InterceptLon); x >= 0 {
			grid[y][x] = '✕'
		}
	}

	// Interceptor in flight
	if m.hasInterceptor {
		if x, y := m.scopeToScreen(m.interceptorLat, m.interceptorLon); x >= 0 {
			grid[y][x] = '◆'
		}
	}

	// The threat itself, with a velocity vector
	if x, y := m.scopeToScreen(m.track.Latitude, m.track.Longitude); x >= 0 {
		grid[y][x] = '◉'
		if m.track.SpeedMS > 5 {
			drawVelocityVector(grid, x, y, m.track.HeadingDeg, m.track.SpeedMS)
		}
	}

	for y := 0; y < scopeHeight; y++ {
		scope.WriteString(borderStyle.Render("│"))
		for x := 0; x < scopeWidth-2; x++ {
			char := grid[y][x]
			switch char {
			case '◉':
				scope.WriteString(levelStyle(m.decision.Level).Render(string(char)))
			case '◆':
				scope.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true).Render(string(char)))
			case '✕':
				scope.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Render(string(char)))
			case '△':
				scope.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Render(string(char)))
			case 'N', 'E', 'S', 'W':
				scope.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Bold(true).Render(string(char)))
			case '─':
				scope.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Render(string(char)))
			case '·':
				scope.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(string(char)))
			case '→', '-':
				scope.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Render(string(char)))
			default:
				scope.WriteRune(char)
			}
		}
		scope.WriteString(borderStyle.Render("│"))
		scope.WriteString("\n")
	}

	scope.WriteString(borderStyle.Render("└" + strings.Repeat("─", scopeWidth-2) + "┘"))

	return scope.String()
}

// drawCircle draws a circle using Bresenham's algorithm with aspect ratio
// correction on the X axis.
func drawCircle(grid [][]rune, cx, cy, radius int, char rune) {
	x := radius
	y := 0
	err := 0

	for x >= y {
		xScaled := int(float64(x) / aspectRatio)
		yScaled := int(float64(y) / aspectRatio)

		setPixel(grid, cx+xScaled, cy+y, char)
		setPixel(grid, cx+yScaled, cy+x, char)
		setPixel(grid, cx-yScaled, cy+x, char)
		setPixel(grid, cx-xScaled, cy+y, char)
		setPixel(grid, cx-xScaled, cy-y, char)
		setPixel(grid, cx-yScaled, cy-x, char)
		setPixel(grid, cx+yScaled, cy-x, char)
		setPixel(grid, cx+xScaled, cy-y, char)

		y++
		err += 1 + 2*y
		if 2*(err-x)+1 > 0 {
			x--
			err += 1 - 2*x
		}
	}
}

// setPixel sets a grid cell if it's within bounds, only overwriting empty
// space or ring pixels.
func setPixel(grid [][]rune, x, y int, char rune) {
	if y >= 0 && y < len(grid) && x >= 0 && x < len(grid[0]) {
		if grid[y][x] == ' ' || grid[y][x] == '─' {
			grid[y][x] = char
		}
	}
}

// drawVelocityVector draws an arrow showing the threat's direction of motion.
func drawVelocityVector(grid [][]rune, x, y int, headingDeg, speedMS float64) {
	length := int(speedMS/50.0) + 1
	if length > 4 {
		length = 4
	}

	headingRad := headingDeg * math.Pi / 180.0

	for i := 1; i <= length; i++ {
		dx := int(float64(i) * math.Sin(headingRad) / aspectRatio)
		dy := -int(float64(i) * math.Cos(headingRad))

		nx, ny := x+dx, y+dy
		if ny >= 0 && ny < len(grid) && nx >= 0 && nx < len(grid[0]) {
			if grid[ny][nx] == ' ' || grid[ny][nx] == '─' || grid[ny][nx] == '·' {
				if i == length {
					grid[ny][nx] = '→'
				} else {
					grid[ny][nx] = '-'
				}
			}
		}
	}
}

// renderInfo renders the decision panel beside the scope.
func (m model) renderInfo() string {
	var info strings.Builder

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	info.WriteString(headerStyle.Render("DECISION"))
	info.WriteString("\n\n")

	info.WriteString(fmt.Sprintf("T+%ds / %ds", m.second, m.durationS))
	if m.paused {
		info.WriteString("  [PAUSED]")
	}
	if m.done {
		info.WriteString("  [DONE]")
	}
	info.WriteString("\n\n")

	if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		info.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		info.WriteString("\n\n")
	}

	info.WriteString("Level: ")
	info.WriteString(levelStyle(m.decision.Level).Render(string(m.decision.Level)))
	info.WriteString("\n\n")

	info.WriteString(headerStyle.Render("Threat"))
	info.WriteString("\n")
	info.WriteString(fmt.Sprintf("Pos:  %.4f°, %.4f°\n", m.track.Latitude, m.track.Longitude))
	info.WriteString(fmt.Sprintf("Spd:  %.0f m/s  Hdg: %.0f°\n", m.track.SpeedMS, m.track.HeadingDeg))
	info.WriteString(fmt.Sprintf("Alt:  %.0f m\n", m.track.AltitudeM))
	info.WriteString("\n")

	if a := m.decision.Assignment; a != nil {
		info.WriteString(headerStyle.Render("Assignment"))
		info.WriteString("\n")
		info.WriteString(fmt.Sprintf("Site: %s\n", a.SiteName))
		info.WriteString(fmt.Sprintf("Unit: %s\n", a.InterceptorName))
		info.WriteString(fmt.Sprintf("TTI:  %.1f s\n", a.TimeToInterceptS))
		info.WriteString(fmt.Sprintf("Cost: %.2f EUR\n", a.Cost))
		info.WriteString("\n")
	} else {
		info.WriteString(helpStyle.Render(m.decision.Note))
		info.WriteString("\n\n")
	}

	info.WriteString(headerStyle.Render("Legend"))
	info.WriteString("\n")
	info.WriteString("◉ Threat\n")
	info.WriteString("◆ Interceptor\n")
	info.WriteString("✕ Intercept point\n")
	info.WriteString("△ Defence site\n")
	info.WriteString("· Trail\n")
	info.WriteString("\n")
	info.WriteString(fmt.Sprintf("Radius: %.0f km\n", m.radiusM/1000))

	return info.String()
}
