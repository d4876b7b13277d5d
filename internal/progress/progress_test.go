package progress_test

import (
	"bytes"
	"testing"

	"dvdmirror/internal/progress"
)

func TestRenderer_QuietModeIsNoOp(t *testing.T) {
	r := progress.New(&bytes.Buffer{}, true)
	fn := r.Func("VTS_01_1.VOB", 1000)
	fn(500, 1000, "VTS_01_1.VOB") // must not panic with no container behind it
	r.Wait()
}

func TestRenderer_DrivesABarWithoutPanicking(t *testing.T) {
	var out bytes.Buffer
	r := progress.New(&out, false)
	fn := r.Func("VTS_01_1.VOB", 1000)
	fn(250, 1000, "VTS_01_1.VOB")
	fn(1000, 1000, "VTS_01_1.VOB")
	r.Wait()
}
