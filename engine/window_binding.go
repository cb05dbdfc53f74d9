package engine

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/engine/adapter"
	"github.com/Carmen-Shannon/oxy-pano/engine/event"
	"github.com/Carmen-Shannon/oxy-pano/engine/input"
	"github.com/Carmen-Shannon/oxy-pano/engine/window"
	"github.com/Carmen-Shannon/oxy-pano/internal/log"
)

// mousePointer is the pointer id used for the window's mouse.
const mousePointer = 0

// BindWindow forwards a window's input and resize callbacks to a viewer. The left mouse button
// drags, the wheel zooms and keys drive keyboard navigation; F toggles fullscreen. Dropping an
// image opens it as an equirectangular panorama, dropping six named faces opens a cubemap.
// The title follows the loaded panorama and closing the window stops the viewer's scheduler.
// The callbacks run on the window's goroutine, which is also the render goroutine when the
// viewer uses a window scheduler.
//
// Parameters:
//   - v: the viewer to drive
//   - w: the window to read events from
func BindWindow(v Viewer, w window.Window) {
	ctrl := v.Input()
	baseTitle := w.Title()

	w.SetMouseDownCallback(func(button window.MouseButton, x, y float64) {
		if button != window.MouseButtonLeft {
			return
		}
		ctrl.PointerDown(mousePointer, input.PointerMouse, x, y, time.Now())
	})
	w.SetMouseUpCallback(func(button window.MouseButton, x, y float64) {
		if button != window.MouseButtonLeft {
			return
		}
		ctrl.PointerUp(mousePointer, x, y, time.Now())
	})
	w.SetMouseMoveCallback(func(x, y float64) {
		ctrl.PointerMove(mousePointer, x, y, time.Now())
	})
	w.SetScrollCallback(func(delta float32) {
		ctrl.Wheel(float64(delta))
	})
	w.SetKeyDownCallback(func(keyCode uint32) {
		if keyCode == common.KeyF {
			w.SetFullscreen(!w.Fullscreen())
			return
		}
		ctrl.KeyDown(int(keyCode))
	})
	w.SetKeyUpCallback(func(keyCode uint32) {
		ctrl.KeyUp(int(keyCode))
	})
	w.SetDropCallback(func(paths []string) {
		src, name, ok := sourceFromDrop(paths)
		if !ok {
			log.Component("viewer").Warn("ignored drop", "files", len(paths))
			return
		}
		if err := v.SetPanorama(src, name); err != nil {
			log.Component("viewer").Warn("open dropped panorama", "source", src.String(), "error", err)
		}
	})
	w.SetResizeCallback(func(width, height int) {
		v.Resize(width, height)
	})
	w.SetCloseCallback(func() {
		v.Stop()
	})

	v.On(event.PanoramaLoaded, func(e event.Event) {
		info, ok := e.Payload.(PanoramaInfo)
		if !ok {
			return
		}
		w.SetTitle(baseTitle + " - " + panoramaTitle(info.Source))
	})
}

// sourceFromDrop maps dropped files to a panorama source and the adapter that reads it.
// A single file is equirectangular. Six files are a cubemap when every face can be named
// from the file names (left, front, right, back, top or up, bottom or down).
func sourceFromDrop(paths []string) (adapter.Source, string, bool) {
	switch len(paths) {
	case 1:
		return adapter.Source{Path: paths[0]}, adapter.Equirectangular, true
	case 6:
		var faces adapter.CubeFaces
		slots := []struct {
			name string
			path *string
		}{
			{"left", &faces.Left}, {"front", &faces.Front}, {"right", &faces.Right}, {"back", &faces.Back},
			{"top", &faces.Top}, {"up", &faces.Top}, {"bottom", &faces.Bottom}, {"down", &faces.Bottom},
		}
		for _, p := range paths {
			stem := strings.ToLower(strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)))
			var slot *string
			for _, s := range slots {
				if strings.HasSuffix(stem, s.name) {
					slot = s.path
					break
				}
			}
			if slot == nil || *slot != "" {
				return adapter.Source{}, "", false
			}
			*slot = p
		}
		return adapter.Source{Faces: faces}, adapter.Cubemap, true
	default:
		return adapter.Source{}, "", false
	}
}

func panoramaTitle(src adapter.Source) string {
	if src.Path != "" {
		return filepath.Base(src.Path)
	}
	if !src.Faces.Empty() {
		return filepath.Base(filepath.Dir(src.Faces.Front))
	}
	return src.String()
}
