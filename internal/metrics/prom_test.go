package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/anchorgo/internal/ir"
	"github.com/roach88/anchorgo/internal/transport"
)

func TestCompileObserver(t *testing.T) {
	reg := NewRegistry()
	o := NewCompileObserver(reg)

	o.Compiled(ir.OriginLegacy, 2*time.Millisecond)
	o.Compiled(ir.OriginLegacy, time.Millisecond)
	o.Compiled(ir.OriginNewFormat, time.Millisecond)
	o.Failed(ir.KindCyclicType)
	o.Failed("")

	assert.Equal(t, 2.0, testutil.ToFloat64(o.compiledTotal.WithLabelValues(string(ir.OriginLegacy))))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.compiledTotal.WithLabelValues(string(ir.OriginNewFormat))))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.failedTotal.WithLabelValues(string(ir.KindCyclicType))))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.failedTotal.WithLabelValues("Unknown")))
	assert.Equal(t, 1, testutil.CollectAndCount(o.duration))
}

func TestFetchObserver(t *testing.T) {
	reg := NewRegistry()
	o := NewFetchObserver(reg)

	o.Fetch(transport.FetchOK, 10*time.Millisecond)
	o.Fetch(transport.FetchNotFound, 5*time.Millisecond)
	o.Fetch(transport.FetchOK, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(o.fetchTotal.WithLabelValues(string(transport.FetchOK))))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.fetchTotal.WithLabelValues(string(transport.FetchNotFound))))
}

func TestWriteFile(t *testing.T) {
	reg := NewRegistry()
	NewCompileObserver(reg).Compiled(ir.OriginNewFormat, time.Millisecond)
	NewFetchObserver(reg).Fetch(transport.FetchError, time.Second)

	path := filepath.Join(t.TempDir(), "anchorgo.prom")
	require.NoError(t, WriteFile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `anchorgo_idl_compiled_total{origin="new"} 1`)
	assert.Contains(t, text, `anchorgo_rpc_account_fetch_total{result="error"} 1`)
	assert.True(t, strings.HasPrefix(text, "# HELP"))
}
