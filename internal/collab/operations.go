package collab

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/geocalc/geocalc/backend-go/internal/document"
	"github.com/geocalc/geocalc/backend-go/internal/engine"
)

var ErrUnknownOperation = errors.New("unknown operation type")

// SceneState holds the authoritative graph for a room.
type SceneState struct {
	mu        sync.RWMutex
	scene     *engine.Scene
	view      document.ViewTransform
	serverSeq int64
}

// NewSceneState creates an empty scene with the default view.
func NewSceneState() *SceneState {
	return &SceneState{
		scene: engine.NewScene(),
		view:  document.DefaultViewTransform(),
	}
}

// LoadSceneState seeds a room from a saved snapshot.
func LoadSceneState(data []byte) (*SceneState, error) {
	snap, err := document.DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	objects, err := snap.Decode()
	if err != nil {
		return nil, err
	}
	ss := NewSceneState()
	if err := ss.scene.Load(objects); err != nil {
		return nil, fmt.Errorf("load scene: %w", err)
	}
	ss.view = snap.ViewTransform
	return ss, nil
}

// Snapshot returns the current scene and the sequence number it reflects.
func (ss *SceneState) Snapshot() (*document.Snapshot, int64, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	snap, err := document.NewSnapshot(ss.scene.Objects(), ss.view)
	if err != nil {
		return nil, 0, err
	}
	return snap, ss.serverSeq, nil
}

// Seq returns the number of operations applied so far.
func (ss *SceneState) Seq() int64 {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.serverSeq
}

// ApplyOperation applies op and returns its server sequence number and, for
// deletes, every object removed. A rejected op leaves the scene and the
// sequence unchanged.
func (ss *SceneState) ApplyOperation(op Operation) (int64, []string, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	removed, err := ss.applyOperationLocked(op)
	if err != nil {
		return 0, nil, err
	}
	ss.serverSeq++
	return ss.serverSeq, removed, nil
}

func (ss *SceneState) applyOperationLocked(op Operation) ([]string, error) {
	switch op.Type {
	case OpObjectAdd:
		return nil, ss.applyAdd(op)
	case OpObjectUpdate:
		return nil, ss.applyUpdate(op)
	case OpObjectDelete:
		return ss.scene.Delete(op.ObjectID)
	case OpViewSet:
		return nil, ss.applyView(op)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, op.Type)
	}
}

func (ss *SceneState) applyAdd(op Operation) error {
	if op.Object == nil {
		return errors.New("object.add without object")
	}
	obj, err := op.Object.Decode()
	if err != nil {
		return err
	}
	return ss.scene.Add(obj)
}

func (ss *SceneState) applyUpdate(op Operation) error {
	if op.Patch == nil {
		return errors.New("object.update without patch")
	}
	// A failed expression edit is still recorded on the function by Update;
	// undo that so a nack leaves no trace.
	var before document.Object
	if obj, ok := ss.scene.Get(op.ObjectID); ok {
		before = obj.Clone()
	}
	err := ss.scene.Update(op.ObjectID, *op.Patch)
	if err != nil && before != nil {
		if f, ok := ss.scene.Func(op.ObjectID); ok {
			prev := before.(*document.Func)
			f.Rejected = prev.Rejected
			f.Err = prev.Err
		}
	}
	return err
}

func (ss *SceneState) applyView(op Operation) error {
	if op.View == nil {
		return errors.New("view.set without view")
	}
	if op.View.Zoom <= 0 {
		return fmt.Errorf("view.set: zoom must be positive, got %g", op.View.Zoom)
	}
	ss.view = *op.View
	return nil
}

// GetServerTimestamp returns the current server timestamp
func GetServerTimestamp() int64 {
	return time.Now().UnixMilli()
}
