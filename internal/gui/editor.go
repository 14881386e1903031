package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"github.com/keagan/gyrocut/internal/clips"
	"github.com/keagan/gyrocut/internal/logging"
	"github.com/keagan/gyrocut/internal/project"
	"github.com/keagan/gyrocut/pkg/util"
)

// RunEditor opens the segment editor for one video and blocks until the
// window closes. duration is the video length in seconds.
func RunEditor(logger zerolog.Logger, v project.Video, duration float64) error {
	logger = logging.WithComponent(logger, "gui").With().Str("video", v.Filename).Logger()

	session, err := clips.OpenCuration(v.SegmentsPath())
	if err != nil {
		return fmt.Errorf("open segments: %w", err)
	}

	myApp := app.NewWithID("gyrocut")
	w := myApp.NewWindow("gyrocut: " + v.Filename)
	w.Resize(fyne.NewSize(640, 480))

	var currentStart float64
	var currentEnd float64
	selected := -1

	videoLabel := widget.NewLabel(fmt.Sprintf("%s (%s)", v.Filename, util.FormatSeconds(duration)))
	timestampLabel := widget.NewLabel("Current: 0.00s")
	markLabel := widget.NewLabel("Start: -  End: -")
	statusLabel := widget.NewLabel("")
	slider := widget.NewSlider(0, max(duration, 1))
	slider.Step = 0.1

	slider.OnChanged = func(val float64) {
		text := fmt.Sprintf("Current: %s", util.FormatSeconds(val))
		if level, ok := session.LevelAt(val); ok {
			text += fmt.Sprintf("  interest %.1f", level)
		}
		timestampLabel.SetText(text)
	}

	list := widget.NewList(
		func() int { return len(session.Segments()) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			segs := session.Segments()
			if id >= len(segs) {
				return
			}
			s := segs[id]
			o.(*widget.Label).SetText(fmt.Sprintf("%s -> %s  (%.1fs)",
				util.FormatSeconds(s.StartTime), util.FormatSeconds(s.EndTime), s.Duration()))
		},
	)
	list.OnSelected = func(id widget.ListItemID) {
		selected = id
		segs := session.Segments()
		if id < len(segs) {
			slider.SetValue(segs[id].StartTime)
		}
	}

	refresh := func() {
		list.UnselectAll()
		selected = -1
		list.Refresh()
		status := fmt.Sprintf("%d segments, %.1fs selected", len(session.Segments()), clips.TotalDuration(session.Segments()))
		if session.Dirty() {
			status += " (unsaved)"
		}
		statusLabel.SetText(status)
	}

	startButton := widget.NewButton("Mark Start", func() {
		currentStart = slider.Value
		markLabel.SetText(fmt.Sprintf("Start: %s  End: %s", util.FormatSeconds(currentStart), util.FormatSeconds(currentEnd)))
	})

	endButton := widget.NewButton("Mark End", func() {
		currentEnd = slider.Value
		markLabel.SetText(fmt.Sprintf("Start: %s  End: %s", util.FormatSeconds(currentStart), util.FormatSeconds(currentEnd)))
	})

	addButton := widget.NewButton("Add Segment", func() {
		seg := clips.Segment{StartTime: currentStart, EndTime: currentEnd}
		if err := session.Add(seg); err != nil {
			dialog.ShowError(err, w)
			return
		}
		logger.Debug().Float64("start", seg.StartTime).Float64("end", seg.EndTime).Msg("segment added")
		refresh()
	})

	removeButton := widget.NewButton("Remove Selected", func() {
		if selected < 0 {
			return
		}
		if err := session.Remove(selected); err != nil {
			dialog.ShowError(err, w)
			return
		}
		refresh()
	})

	save := func() bool {
		if err := session.Save(); err != nil {
			logger.Error().Err(err).Msg("save failed")
			dialog.ShowError(err, w)
			return false
		}
		logger.Info().Int("segments", len(session.Segments())).Msg("segments saved")
		refresh()
		return true
	}
	saveButton := widget.NewButton("Save", func() { save() })

	w.SetCloseIntercept(func() {
		if !session.Dirty() {
			w.Close()
			return
		}
		dialog.ShowConfirm("Unsaved changes", "Save segments before closing?", func(ok bool) {
			if ok && !save() {
				return
			}
			w.Close()
		}, w)
	})

	refresh()
	w.SetContent(
		container.NewBorder(
			container.NewVBox(
				videoLabel,
				slider,
				timestampLabel,
				markLabel,
				container.NewHBox(startButton, endButton, addButton, removeButton, saveButton),
			),
			statusLabel,
			nil, nil,
			list,
		),
	)

	w.ShowAndRun()
	return nil
}
