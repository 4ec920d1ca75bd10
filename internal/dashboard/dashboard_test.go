package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/stonify/pkg/transfer"
)

func TestDashboard_Update(t *testing.T) {
	d, err := New("mars:IFFFS -> venus:IFFFS")
	require.NoError(t, err)

	require.NoError(t, d.Update(transfer.Progress{State: transfer.StateInitializing}))
	require.NoError(t, d.Update(transfer.Progress{State: transfer.StateTransferring, Written: 3, Total: 10, Bytes: 3 * 2048}))

	last := d.Last()
	assert.Equal(t, transfer.StateTransferring, last.State)
	assert.Equal(t, 3, last.Written)

	// A snapshot older than the last one must not feed a negative rate.
	require.NoError(t, d.Update(transfer.Progress{State: transfer.StateTransferring, Written: 2, Total: 10}))
}

func TestDashboard_StatusLine(t *testing.T) {
	d, err := New("copy")
	require.NoError(t, err)

	line := d.statusLine(transfer.Progress{State: transfer.StateTransferring, Written: 5, Total: 8, Bytes: 5_000_000})
	assert.Contains(t, line, "transferring")
	assert.Contains(t, line, "5/8 frames")
	assert.Contains(t, line, "5.0 MB")
}

func TestDashboard_UnknownTotal(t *testing.T) {
	d, err := New("copy")
	require.NoError(t, err)

	// Total is unknown until the source frame count has been read.
	assert.NoError(t, d.Update(transfer.Progress{State: transfer.StateFormatResolved}))
}
