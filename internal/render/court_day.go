package render

import (
	"bytes"
	"fmt"
	"image/color"
	"sort"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/Freeeeeet/club_league/internal/model"
)

// FontStyle стиль шрифта
type FontStyle string

const (
	FontStyleRegular FontStyle = ""
	FontStyleBold    FontStyle = "bold"
)

// Размеры и отступы
const (
	imageWidth       = 1200
	headerHeight     = 110
	timeLabelsWidth  = 110
	legendHeight     = 60
	rowHeight        = 64.0
	cellPaddingX     = 8.0
	cellPaddingY     = 4.0
	slotBorderRadius = 6.0
	shadowOffset     = 3.0
)

// Размеры шрифтов
const (
	titleFontSize  = 30.0
	courtFontSize  = 24.0
	timeFontSize   = 18.0
	slotFontSize   = 17.0
	legendFontSize = 15.0
)

// Цветовая схема
var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{80, 85, 90, 220}
	timeLabelColor   = color.RGBA{110, 115, 120, 200}
	rowLineColor     = color.NRGBA{150, 150, 150, 255}
	evenCourtColor   = color.NRGBA{240, 240, 240, 255}
	oddCourtColor    = color.NRGBA{220, 220, 220, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}

	slotFreeColor    = color.RGBA{133, 193, 85, 220}
	slotBookedColor  = color.RGBA{255, 182, 193, 255}
	slotBlockedColor = color.RGBA{158, 158, 158, 200}
	slotTextColor    = color.RGBA{20, 24, 28, 230}
	slotShadowColor  = color.RGBA{0, 0, 0, 20}
)

var (
	fontsOnce   sync.Once
	parsedFonts map[FontStyle]*opentype.Font
)

// loadFont выставляет шрифт нужного размера, при ошибке basicfont
func loadFont(dc *gg.Context, size float64, style FontStyle) {
	fontsOnce.Do(func() {
		parsedFonts = make(map[FontStyle]*opentype.Font)
		for s, data := range map[FontStyle][]byte{FontStyleRegular: goregular.TTF, FontStyleBold: gobold.TTF} {
			if f, err := opentype.Parse(data); err == nil {
				parsedFonts[s] = f
			}
		}
	})

	if f, ok := parsedFonts[style]; ok {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			dc.SetFontFace(face)
			return
		}
	}
	dc.SetFontFace(basicfont.Face7x13)
}

// CourtDayImage рисует PNG сетку дня: корты по столбцам, слоты по строкам.
// now рисуется красной линией, если попадает в день.
func CourtDayImage(day time.Time, courts []string, slots []model.SlotAvailability, now time.Time) ([]byte, error) {
	if len(courts) == 0 {
		return nil, fmt.Errorf("no courts to draw")
	}

	starts := slotStarts(slots)
	if len(starts) == 0 {
		return nil, fmt.Errorf("no slots on %s", day.Format(time.DateOnly))
	}
	byCell := make(map[string]model.SlotAvailability, len(slots))
	for _, s := range slots {
		byCell[cellKey(s.Court, s.StartsAt)] = s
	}

	height := headerHeight + int(rowHeight)*len(starts) + legendHeight
	courtWidth := float64(imageWidth-timeLabelsWidth) / float64(len(courts))

	dc := gg.NewContext(imageWidth, height)
	dc.SetColor(bgColor)
	dc.Clear()

	drawHeader(dc, day)
	drawTimeLabels(dc, starts, day.Location())
	for i, court := range courts {
		x := timeLabelsWidth + float64(i)*courtWidth
		drawCourtColumn(dc, court, i, x, courtWidth, len(starts))
		for row, start := range starts {
			if slot, ok := byCell[cellKey(court, start)]; ok {
				drawSlot(dc, slot, x, headerHeight+float64(row)*rowHeight, courtWidth)
			}
		}
	}
	drawCurrentTimeLine(dc, starts, slots, now)
	drawLegend(dc, float64(height-legendHeight))

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func cellKey(court string, start time.Time) string {
	return court + "|" + start.UTC().Format(time.RFC3339)
}

// slotStarts уникальные начала слотов по возрастанию
func slotStarts(slots []model.SlotAvailability) []time.Time {
	seen := make(map[int64]bool)
	var starts []time.Time
	for _, s := range slots {
		if !seen[s.StartsAt.Unix()] {
			seen[s.StartsAt.Unix()] = true
			starts = append(starts, s.StartsAt)
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	return starts
}

func drawHeader(dc *gg.Context, day time.Time) {
	title := day.Format("Monday, 02 January 2006")
	loadFont(dc, titleFontSize, FontStyleBold)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, float64(imageWidth)/2, headerHeight/3, 0.5, 0.5)
}

func drawTimeLabels(dc *gg.Context, starts []time.Time, loc *time.Location) {
	loadFont(dc, timeFontSize, FontStyleRegular)
	dc.SetColor(timeLabelColor)
	for row, start := range starts {
		y := headerHeight + float64(row)*rowHeight + rowHeight/2
		dc.DrawStringAnchored(start.In(loc).Format("15:04"), timeLabelsWidth-12, y, 1, 0.5)
	}
}

func drawCourtColumn(dc *gg.Context, court string, index int, x, width float64, rows int) {
	if index%2 == 0 {
		dc.SetColor(evenCourtColor)
	} else {
		dc.SetColor(oddCourtColor)
	}
	dc.DrawRectangle(x, headerHeight, width, float64(rows)*rowHeight)
	dc.Fill()

	loadFont(dc, courtFontSize, FontStyleBold)
	dc.SetColor(textColor)
	dc.DrawStringAnchored("Court "+court, x+width/2, headerHeight-18, 0.5, 0)

	dc.SetLineWidth(0.3)
	dc.SetColor(rowLineColor)
	for r := 0; r <= rows; r++ {
		y := headerHeight + float64(r)*rowHeight
		dc.DrawLine(x, y, x+width, y)
		dc.Stroke()
	}
}

func drawSlot(dc *gg.Context, slot model.SlotAvailability, x, y, width float64) {
	fill := slotColor(slot.State)
	w := width - cellPaddingX*2
	h := rowHeight - cellPaddingY*2

	dc.SetColor(slotShadowColor)
	dc.DrawRoundedRectangle(x+cellPaddingX+shadowOffset, y+cellPaddingY+shadowOffset, w, h, slotBorderRadius)
	dc.Fill()

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x+cellPaddingX, y+cellPaddingY, w, h, slotBorderRadius)
	dc.Fill()

	dc.SetColor(darkenColor(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x+cellPaddingX, y+cellPaddingY, w, h, slotBorderRadius)
	dc.Stroke()

	loadFont(dc, slotFontSize, FontStyleRegular)
	dc.SetColor(slotTextColor)
	dc.DrawStringAnchored(slotLabel(slot.State), x+width/2, y+rowHeight/2, 0.5, 0.5)
}

func slotColor(state model.SlotState) color.RGBA {
	switch state {
	case model.SlotStateBooked:
		return slotBookedColor
	case model.SlotStateBlocked:
		return slotBlockedColor
	default:
		return slotFreeColor
	}
}

func slotLabel(state model.SlotState) string {
	switch state {
	case model.SlotStateBooked:
		return "Booked"
	case model.SlotStateBlocked:
		return "Blocked"
	default:
		return "Free"
	}
}

// darkenColor затемняет цвет на множитель
func darkenColor(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

func drawCurrentTimeLine(dc *gg.Context, starts []time.Time, slots []model.SlotAvailability, now time.Time) {
	first := starts[0]
	last := first
	for _, s := range slots {
		if s.EndsAt.After(last) {
			last = s.EndsAt
		}
	}
	if now.Before(first) || !now.Before(last) {
		return
	}

	// строки идут подряд, поэтому позиция линейна от начала первого слота
	slotLength := slots[0].EndsAt.Sub(slots[0].StartsAt)
	y := headerHeight + float64(now.Sub(first))/float64(slotLength)*rowHeight
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2.0)
	dc.DrawLine(timeLabelsWidth, y, imageWidth, y)
	dc.Stroke()
}

func drawLegend(dc *gg.Context, top float64) {
	items := []struct {
		label string
		clr   color.Color
	}{
		{"Free", slotFreeColor},
		{"Booked", slotBookedColor},
		{"Blocked", slotBlockedColor},
	}

	const boxW, boxH = 20.0, 14.0
	x := float64(timeLabelsWidth)
	y := top + legendHeight/2 - boxH/2
	loadFont(dc, legendFontSize, FontStyleRegular)
	for _, item := range items {
		dc.SetColor(item.clr)
		dc.DrawRoundedRectangle(x, y, boxW, boxH, 3)
		dc.Fill()

		dc.SetColor(textColor)
		dc.DrawStringAnchored(item.label, x+boxW+8, y+boxH/2, 0, 0.5)
		w, _ := dc.MeasureString(item.label)
		x += boxW + 8 + w + 32
	}
}
