package state

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestStoreEmptyReads(t *testing.T) {
	s := NewStore()
	if _, ok := s.JointPositions(); ok {
		t.Error("empty store reported joint positions")
	}
	if _, ok := s.JointDynamics(); ok {
		t.Error("empty store reported joint dynamics")
	}
	if _, ok := s.EndPose(); ok {
		t.Error("empty store reported end pose")
	}
	if _, ok := s.Gripper(); ok {
		t.Error("empty store reported gripper")
	}
	if _, ok := s.Diagnostics(); ok {
		t.Error("empty store reported diagnostics")
	}
}

func TestStorePublishRead(t *testing.T) {
	s := NewStore()
	want := JointPositions{
		Meta:   Meta{Valid: JointMaskAll, Stamp: 5 * time.Millisecond, Captured: 6 * time.Millisecond},
		Angles: [NumJoints]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6},
	}
	s.PublishJointPositions(want)

	got, ok := s.JointPositions()
	if !ok {
		t.Fatal("read failed after publish")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestStorePublishCopies(t *testing.T) {
	s := NewStore()
	v := Gripper{Width: 0.1}
	s.PublishGripper(v)
	v.Width = 0.9 // caller reuse must not affect the stored snapshot

	got, _ := s.Gripper()
	if got.Width != 0.1 {
		t.Errorf("stored snapshot changed after publish: Width = %v", got.Width)
	}
}

func TestStoreGroupsIndependent(t *testing.T) {
	s := NewStore()
	s.PublishDiagnostics(Diagnostics{Enabled: true})
	if _, ok := s.Gripper(); ok {
		t.Error("diagnostics publish leaked into gripper group")
	}
	d, ok := s.Diagnostics()
	if !ok || !d.Enabled {
		t.Errorf("diagnostics read = %+v, ok=%v", d, ok)
	}
}

// TestStoreTornReads hammers one group from a writer goroutine while
// readers verify every observed snapshot is internally consistent. Each
// published value uses a single fill pattern across all joints, so a torn
// read would surface as mixed values.
func TestStoreTornReads(t *testing.T) {
	s := NewStore()
	stop := make(chan struct{})

	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			var v JointPositions
			fill := float64(i % 1000)
			for j := range v.Angles {
				v.Angles[j] = fill
			}
			v.Stamp = time.Duration(i)
			s.PublishJointPositions(v)
		}
	}()

	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for i := 0; i < 20000; i++ {
				v, ok := s.JointPositions()
				if !ok {
					continue
				}
				for j := 1; j < NumJoints; j++ {
					if v.Angles[j] != v.Angles[0] {
						t.Errorf("torn snapshot: %v", v.Angles)
						return
					}
				}
			}
		}()
	}

	readers.Wait()
	close(stop)
	writer.Wait()
}
