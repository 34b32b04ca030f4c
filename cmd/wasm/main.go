//go:build js && wasm

package main

import (
	"encoding/json"
	"errors"
	"syscall/js"

	"github.com/geocalc/geocalc/backend-go/internal/document"
	"github.com/geocalc/geocalc/backend-go/internal/engine"
)

var (
	eng  *engine.Engine
	loop *engine.FrameLoop
)

func main() {
	eng = engine.NewEngine()

	geocalcEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	geocalcEngine.Set("loadSnapshot", js.FuncOf(loadSnapshot))
	geocalcEngine.Set("loadSample", js.FuncOf(loadSample))
	geocalcEngine.Set("setTool", js.FuncOf(setTool))
	geocalcEngine.Set("setViewport", js.FuncOf(setViewport))
	geocalcEngine.Set("setPixelRatio", js.FuncOf(setPixelRatio))
	geocalcEngine.Set("setViewTransform", js.FuncOf(setViewTransform))
	geocalcEngine.Set("resetView", js.FuncOf(resetView))
	geocalcEngine.Set("addFunction", js.FuncOf(addFunction))
	geocalcEngine.Set("addSlider", js.FuncOf(addSlider))
	geocalcEngine.Set("addPoint", js.FuncOf(addPoint))
	geocalcEngine.Set("updateObject", js.FuncOf(updateObject))
	geocalcEngine.Set("deleteObject", js.FuncOf(deleteObject))
	geocalcEngine.Set("setSelection", js.FuncOf(setSelection))
	geocalcEngine.Set("pointerDown", js.FuncOf(pointerDown))
	geocalcEngine.Set("pointerMove", js.FuncOf(pointerMove))
	geocalcEngine.Set("pointerUp", js.FuncOf(pointerUp))
	geocalcEngine.Set("pointerLeave", js.FuncOf(pointerLeave))
	geocalcEngine.Set("wheel", js.FuncOf(wheel))
	geocalcEngine.Set("click", js.FuncOf(click))
	geocalcEngine.Set("startLoop", js.FuncOf(startLoop))
	geocalcEngine.Set("stopLoop", js.FuncOf(stopLoop))

	// --- Queries (frontend ← engine) ---
	geocalcEngine.Set("render", js.FuncOf(render))
	geocalcEngine.Set("tick", js.FuncOf(tick))
	geocalcEngine.Set("hitTest", js.FuncOf(hitTest))
	geocalcEngine.Set("getSnapshot", js.FuncOf(getSnapshot))
	geocalcEngine.Set("getObjects", js.FuncOf(getObjects))
	geocalcEngine.Set("describe", js.FuncOf(describe))
	geocalcEngine.Set("getSelection", js.FuncOf(getSelection))
	geocalcEngine.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	geocalcEngine.Set("getTool", js.FuncOf(getTool))
	geocalcEngine.Set("getTools", js.FuncOf(getTools))
	geocalcEngine.Set("getInteraction", js.FuncOf(getInteraction))
	geocalcEngine.Set("getViewTransform", js.FuncOf(getViewTransform))
	geocalcEngine.Set("takeNotices", js.FuncOf(takeNotices))

	js.Global().Set("geocalcEngine", geocalcEngine)
	js.Global().Set("geocalcWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

var errMissingArgs = errors.New("missing arguments")

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func toJSON(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return js.ValueOf("null")
	}
	return js.ValueOf(string(data))
}

// --- Command Handlers ---

func loadSnapshot(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail(errMissingArgs)
	}
	if err := eng.LoadSnapshot([]byte(args[0].String())); err != nil {
		return fail(err)
	}
	return ok()
}

func loadSample(this js.Value, args []js.Value) interface{} {
	if err := eng.LoadSample(); err != nil {
		return fail(err)
	}
	return ok()
}

func setTool(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail(errMissingArgs)
	}
	if err := eng.SetToolByName(args[0].String()); err != nil {
		return fail(err)
	}
	return ok()
}

func setViewport(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.SetViewport(args[0].Float(), args[1].Float())
	return nil
}

func setPixelRatio(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.SetPixelRatio(args[0].Float())
	return nil
}

func setViewTransform(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail(errMissingArgs)
	}
	var t document.ViewTransform
	if err := json.Unmarshal([]byte(args[0].String()), &t); err != nil {
		return fail(err)
	}
	eng.SetViewTransform(t)
	return ok()
}

func resetView(this js.Value, args []js.Value) interface{} {
	eng.ResetView()
	return nil
}

func addFunction(this js.Value, args []js.Value) interface{} {
	expression := ""
	if len(args) > 0 && args[0].Type() == js.TypeString {
		expression = args[0].String()
	}
	id, err := eng.AddFunction(expression)
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(map[string]interface{}{"id": id})
}

func addSlider(this js.Value, args []js.Value) interface{} {
	id, err := eng.AddSlider()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(map[string]interface{}{"id": id})
}

func addPoint(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return fail(errMissingArgs)
	}
	id, err := eng.AddPoint(args[0].Float(), args[1].Float())
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(map[string]interface{}{"id": id})
}

func updateObject(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return fail(errMissingArgs)
	}
	var p engine.Patch
	if err := json.Unmarshal([]byte(args[1].String()), &p); err != nil {
		return fail(err)
	}
	if err := eng.UpdateObject(args[0].String(), p); err != nil {
		return fail(err)
	}
	return ok()
}

func deleteObject(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail(errMissingArgs)
	}
	removed, err := eng.DeleteObject(args[0].String())
	if err != nil {
		return fail(err)
	}
	return toJSON(removed)
}

func setSelection(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		eng.SetSelection(nil)
		return nil
	}

	arr := args[0]
	length := arr.Length()
	ids := make([]string, length)
	for i := 0; i < length; i++ {
		ids[i] = arr.Index(i).String()
	}
	eng.SetSelection(ids)
	return nil
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if len(args) >= 2 {
		eng.PointerDown(args[0].Float(), args[1].Float())
	}
	return nil
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if len(args) >= 2 {
		eng.PointerMove(args[0].Float(), args[1].Float())
	}
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	if len(args) >= 2 {
		eng.PointerUp(args[0].Float(), args[1].Float())
	}
	return nil
}

func pointerLeave(this js.Value, args []js.Value) interface{} {
	eng.PointerLeave()
	return nil
}

func wheel(this js.Value, args []js.Value) interface{} {
	if len(args) >= 1 {
		eng.Wheel(args[0].Float())
	}
	return nil
}

func click(this js.Value, args []js.Value) interface{} {
	if len(args) >= 2 {
		eng.Click(args[0].Float(), args[1].Float())
	}
	return nil
}

// startLoop renders once per animation frame and hands the draw commands to
// the callback.
func startLoop(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return fail(errMissingArgs)
	}
	if loop != nil {
		loop.Stop()
	}
	onFrame := args[0]
	loop = engine.NewFrameLoop(newRAFScheduler(), func() {
		onFrame.Invoke(eng.Tick())
	})
	loop.Start()
	return ok()
}

func stopLoop(this js.Value, args []js.Value) interface{} {
	if loop != nil {
		loop.Stop()
	}
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Render())
}

func tick(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Tick())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	return js.ValueOf(eng.HitTest(args[0].Float(), args[1].Float()))
}

func getSnapshot(this js.Value, args []js.Value) interface{} {
	data, err := eng.Snapshot()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(string(data))
}

func getObjects(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.ObjectsJSON())
}

func describe(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail(errMissingArgs)
	}
	info, err := eng.Describe(args[0].String())
	if err != nil {
		return fail(err)
	}
	return toJSON(info)
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.Selection())
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(engine.RectToJSON(eng.SelectionBounds()))
}

func getTool(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Tool().String())
}

func getTools(this js.Value, args []js.Value) interface{} {
	return toJSON(engine.Tools())
}

func getInteraction(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.Interaction())
}

func getViewTransform(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.View().Transform())
}

func takeNotices(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.TakeNotices())
}
