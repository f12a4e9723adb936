package resolver

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symresolve/cache"
)

const sampleSymbolFile = `MODULE Linux x86_64 ABCD myapp
FILE 0 foo.c
FUNC 1000 20 8 do_work
1000 10 42 0
PUBLIC 2000 0 exported_symbol
STACK WIN 4 1000 20 1 2 3 4 5 6 1 my program string
`

func writeSampleSymbolFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "myapp.sym")
	require.NoError(t, os.WriteFile(path, []byte(sampleSymbolFile), 0644))
	return path
}

type testFrame struct {
	base uint64
	name string
}

func (f testFrame) BaseAddress() uint64 { return f.base }
func (f testFrame) CodeFile() string    { return f.name }

func TestLoadModuleAndFillSourceLineInfo(t *testing.T) {
	path := writeSampleSymbolFile(t)
	r := New(Options{})

	require.True(t, r.LoadModule("myapp", path))
	assert.True(t, r.HasModule("myapp"))

	frame := &Frame{InstructionAddress: 0x401005, Module: testFrame{base: 0x400000, name: "myapp"}}
	r.FillSourceLineInfo(frame)

	assert.Equal(t, "do_work", frame.FunctionName)
	assert.Equal(t, uint64(0x401000), frame.FunctionBase)
	assert.Equal(t, "foo.c", frame.SourceFileName)
	assert.Equal(t, uint32(42), frame.SourceLine)
	require.NotNil(t, frame.FrameInfo)
	assert.Equal(t, "my program string", frame.FrameInfo.ProgramString)
}

func TestLoadModuleRejectsDuplicate(t *testing.T) {
	path := writeSampleSymbolFile(t)
	r := New(Options{})

	require.True(t, r.LoadModule("myapp", path))
	assert.False(t, r.LoadModule("myapp", path))
}

func TestLoadModuleFailsOnMissingFile(t *testing.T) {
	r := New(Options{})
	assert.False(t, r.LoadModule("myapp", "/does/not/exist.sym"))
	assert.False(t, r.HasModule("myapp"))
}

func TestFillSourceLineInfoUnknownModule(t *testing.T) {
	r := New(Options{})
	frame := &Frame{InstructionAddress: 0x1000, Module: testFrame{base: 0, name: "nope"}}
	info := r.FillSourceLineInfo(frame)
	assert.Nil(t, info)
	assert.Equal(t, "", frame.FunctionName)
}

func TestLoadModuleConcurrentSameNameDeduplicated(t *testing.T) {
	path := writeSampleSymbolFile(t)
	r := New(Options{})

	const n = 20
	results := make([]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.LoadModule("myapp", path)
		}(i)
	}
	wg.Wait()

	trueCount := 0
	for _, ok := range results {
		if ok {
			trueCount++
		}
	}
	assert.Equal(t, 1, trueCount, "exactly one concurrent LoadModule call for the same name should succeed")
	assert.True(t, r.HasModule("myapp"))
}

func TestLoadModuleUsesCacheOnSecondResolver(t *testing.T) {
	path := writeSampleSymbolFile(t)
	cacheDir := filepath.Join(t.TempDir())
	diskCache := cache.NewDiskModuleCache(cacheDir)

	r1 := New(Options{Cache: diskCache})
	require.True(t, r1.LoadModule("myapp", path))

	// Corrupt the text file so a second resolver can only succeed by
	// reading the cache written by r1.
	require.NoError(t, os.WriteFile(path, []byte("not a valid symbol file\n"), 0644))

	r2 := New(Options{Cache: diskCache})
	require.True(t, r2.LoadModule("myapp", path))

	frame := &Frame{InstructionAddress: 0x401005, Module: testFrame{base: 0x400000, name: "myapp"}}
	r2.FillSourceLineInfo(frame)
	assert.Equal(t, "do_work", frame.FunctionName)
}

func TestLoadModuleMalformedFileFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.sym")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		"FUNC 1000 20 0 f",
		"1000 10 0 0", // line number 0 is fatal
	}, "\n")+"\n"), 0644))

	r := New(Options{})
	assert.False(t, r.LoadModule("bad", path))
}
