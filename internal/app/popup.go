package app

import (
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
)

// PopupInput shows a modal line-editor box over the current screen,
// seeded with initial and labeled with prompt. It returns the entered
// text and true on Enter, or an empty string and false on Esc.
func (a *App) PopupInput(s tcell.Screen, prompt, initial string) (string, bool) {
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorReset)

	promptRunes := []rune(prompt)
	buf := []rune(initial)
	pos := len(buf)

	max := func(a, b int) int {
		if a > b {
			return a
		}
		return b
	}

	w, h := s.Size()
	minContentW := 20
	contentW := max(minContentW, len(promptRunes)+len(buf)+2)
	if contentW > w-4 {
		contentW = w - 4
	}
	boxW := contentW + 4
	boxH := 3
	left := (w - boxW) / 2
	top := (h - boxH) / 2

	drawBox := func() {
		for y := top; y < top+boxH; y++ {
			for x := left; x < left+boxW; x++ {
				s.SetContent(x, y, ' ', nil, style)
			}
		}
		for x := left; x < left+boxW; x++ {
			s.SetContent(x, top, tcell.RuneHLine, nil, style)
			s.SetContent(x, top+boxH-1, tcell.RuneHLine, nil, style)
		}
		for y := top; y < top+boxH; y++ {
			s.SetContent(left, y, tcell.RuneVLine, nil, style)
			s.SetContent(left+boxW-1, y, tcell.RuneVLine, nil, style)
		}
		s.SetContent(left, top, tcell.RuneULCorner, nil, style)
		s.SetContent(left+boxW-1, top, tcell.RuneURCorner, nil, style)
		s.SetContent(left, top+boxH-1, tcell.RuneLLCorner, nil, style)
		s.SetContent(left+boxW-1, top+boxH-1, tcell.RuneLRCorner, nil, style)

		x := left + 2
		y := top + 1
		for i, r := range promptRunes {
			s.SetContent(x+i, y, r, nil, style)
		}
		x += len(promptRunes) + 1

		maxField := boxW - 4 - len(promptRunes)
		displayRunes := buf
		start := 0
		if len(displayRunes) > maxField {
			if pos > maxField {
				start = pos - maxField
			}
			displayRunes = displayRunes[start : start+maxField]
		}
		for i, r := range displayRunes {
			s.SetContent(x+i, y, r, nil, style)
		}
		for i := len(displayRunes); i < maxField; i++ {
			s.SetContent(x+i, y, ' ', nil, style)
		}

		cursorX := x + (pos - start)
		if cursorX < left+1 {
			cursorX = left + 1
		}
		s.ShowCursor(cursorX, y)
	}

	a.Draw(s)
	drawBox()
	s.Show()

	for {
		ev := s.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEsc:
				s.HideCursor()
				a.Draw(s)
				s.Show()
				return "", false
			case tcell.KeyEnter:
				s.HideCursor()
				a.Draw(s)
				s.Show()
				return string(buf), true
			case tcell.KeyBackspace, tcell.KeyBackspace2:
				if pos > 0 {
					buf = append(buf[:pos-1], buf[pos:]...)
					pos--
				}
			case tcell.KeyDelete:
				if pos < len(buf) {
					buf = append(buf[:pos], buf[pos+1:]...)
				}
			case tcell.KeyLeft:
				if pos > 0 {
					pos--
				}
			case tcell.KeyRight:
				if pos < len(buf) {
					pos++
				}
			case tcell.KeyHome:
				pos = 0
			case tcell.KeyEnd:
				pos = len(buf)
			default:
				if r := ev.Rune(); r != 0 {
					if utf8.RuneCountInString(string(buf)) < 4096 {
						buf = append(buf[:pos], append([]rune{r}, buf[pos:]...)...)
						pos++
					}
				}
			}
			a.Draw(s)
			drawBox()
			s.Show()
		case *tcell.EventResize:
			s.Sync()
			w, h = s.Size()
			if boxW > w-4 {
				boxW = w - 4
			}
			left = (w - boxW) / 2
			top = (h - boxH) / 2
			a.Draw(s)
			drawBox()
			s.Show()
		}
	}
}
