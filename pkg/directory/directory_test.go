package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/stonify/pkg/servers"
	"github.com/marmos91/stonify/pkg/wiretap"
	"github.com/marmos91/stonify/pkg/wiretap/wiretaptest"
)

const host = "mars:IFFFS"

type fixture struct {
	env     *wiretaptest.Env
	dir     *Directory
	library string
	reel    string
	unnamed string
	clip    string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	ctx := context.Background()

	env := wiretaptest.NewEnv(t,
		wiretaptest.Server("mars", wiretap.ProductIFFFS, "stonefs", "show"),
		wiretaptest.Server("venus", wiretap.ProductGateway, ""),
	)
	srv := env.Direct(t, host)

	f := &fixture{env: env}
	f.library = wiretaptest.MkNode(t, srv, "/stonefs/show", "dailies", wiretap.NodeLibrary)
	f.reel = wiretaptest.MkNode(t, srv, f.library, "reel 1", wiretap.NodeReel)
	f.unnamed = wiretaptest.MkNode(t, srv, f.library, "", wiretap.NodeReel)
	f.clip = wiretaptest.SeedClip(t, srv, f.library, "shot_010", wiretaptest.Format, 1)

	m, err := servers.NewManager(ctx, env.Client, wiretap.NewProductSet(wiretap.ProductIFFFS))
	require.NoError(t, err)
	f.dir = New(m, opts)
	return f
}

func TestHosts(t *testing.T) {
	f := newFixture(t, Options{})

	hosts := f.dir.Hosts()
	require.Len(t, hosts, 1)
	assert.Equal(t, host, hosts[0].Hostname())
	assert.Equal(t, "mars", hosts[0].DisplayName())
	assert.Equal(t, wiretap.NodeHost, hosts[0].Type())
	assert.Equal(t, Unloaded, hosts[0].State())
	assert.Zero(t, f.env.Faults.Count(wiretaptest.OpConnect))
}

func TestGetChildren(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadsOnceThenCaches", func(t *testing.T) {
		f := newFixture(t, Options{})
		h, _ := f.dir.Host(host)

		children, err := f.dir.GetChildren(ctx, h)
		require.NoError(t, err)
		require.Len(t, children, 1)
		assert.Equal(t, "stonefs", children[0].DisplayName())
		assert.Equal(t, Loaded, h.State())

		_, err = f.dir.GetChildren(ctx, h)
		require.NoError(t, err)
		assert.Equal(t, 1, f.env.Faults.Count(wiretaptest.OpChildren))
	})

	t.Run("ListsEveryType", func(t *testing.T) {
		f := newFixture(t, Options{})
		lib, complete, err := f.dir.Navigate(ctx, host+f.library, ByNodeID)
		require.NoError(t, err)
		require.True(t, complete)

		children, err := f.dir.GetChildren(ctx, lib)
		require.NoError(t, err)
		require.Len(t, children, 3)
		assert.Equal(t, wiretap.NodeClip, children[2].Type())
		assert.Equal(t, "Unnamed", children[1].Label())
	})

	t.Run("ExcludeContent", func(t *testing.T) {
		f := newFixture(t, Options{ExcludeContent: true})
		lib, _, err := f.dir.Navigate(ctx, host+f.library, ByNodeID)
		require.NoError(t, err)

		children, err := f.dir.GetChildren(ctx, lib)
		require.NoError(t, err)
		assert.Len(t, children, 2)
	})

	t.Run("FailureRollsBack", func(t *testing.T) {
		f := newFixture(t, Options{})
		h, _ := f.dir.Host(host)

		var events []Event
		f.dir.Subscribe(func(ev Event) { events = append(events, ev) })

		f.env.Faults.Set(wiretaptest.OpChildren, func(wiretaptest.Call) error {
			return errors.New("server busy")
		})
		_, err := f.dir.GetChildren(ctx, h)
		require.Error(t, err)
		assert.True(t, wiretap.IsCode(err, wiretap.ErrNodeAccess))
		assert.Equal(t, Unloaded, h.State())
		assert.Empty(t, h.Children())

		f.env.Faults.Set(wiretaptest.OpChildren, nil)
		children, err := f.dir.GetChildren(ctx, h)
		require.NoError(t, err)
		assert.Len(t, children, 1)

		require.Len(t, events, 2)
		assert.Equal(t, EventLoadFailed, events[0].Kind)
		assert.Equal(t, EventLoaded, events[1].Kind)
	})
}

func TestResetChildren(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	lib, complete, err := f.dir.Navigate(ctx, host+"/stonefs/show/dailies", ByDisplayName)
	require.NoError(t, err)
	require.True(t, complete)

	_, err = f.dir.GetChildren(ctx, lib)
	require.NoError(t, err)
	_, ok := f.dir.Lookup(Ref{Hostname: host, ID: f.reel})
	assert.True(t, ok)

	wiretaptest.MkNode(t, f.env.Direct(t, host), f.library, "reel 2", wiretap.NodeReel)

	f.dir.ResetChildren(lib)
	assert.Equal(t, Unloaded, lib.State())
	_, ok = f.dir.Lookup(Ref{Hostname: host, ID: f.reel})
	assert.False(t, ok)

	children, err := f.dir.GetChildren(ctx, lib)
	require.NoError(t, err)
	assert.Len(t, children, 4)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	_, _, err := f.dir.Navigate(ctx, host+"/stonefs/show", ByDisplayName)
	require.NoError(t, err)

	f.dir.Reset()
	h, ok := f.dir.Host(host)
	require.True(t, ok)
	assert.Equal(t, Unloaded, h.State())
	_, ok = f.dir.Lookup(Ref{Hostname: host, ID: "/stonefs"})
	assert.False(t, ok)
}

func TestNavigate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	t.Run("ByDisplayName", func(t *testing.T) {
		n, complete, err := f.dir.Navigate(ctx, host+"/stonefs/show/dailies/reel 1", ByDisplayName)
		require.NoError(t, err)
		assert.True(t, complete)
		assert.Equal(t, f.reel, n.ID())
		assert.Equal(t, host+"/stonefs/show/dailies/reel 1", n.DisplayPath())
		assert.Equal(t, host+f.reel, n.NodePath())
	})

	t.Run("ByNodeID", func(t *testing.T) {
		n, complete, err := f.dir.Navigate(ctx, host+f.clip, ByNodeID)
		require.NoError(t, err)
		assert.True(t, complete)
		assert.Equal(t, "shot_010", n.DisplayName())
	})

	t.Run("TrailingSlashMatchesUnnamedNode", func(t *testing.T) {
		n, complete, err := f.dir.Navigate(ctx, host+"/stonefs/show/dailies/", ByDisplayName)
		require.NoError(t, err)
		assert.True(t, complete)
		assert.Equal(t, f.unnamed, n.ID())
	})

	t.Run("HostOnlyWithSlash", func(t *testing.T) {
		n, complete, err := f.dir.Navigate(ctx, host+"/", ByDisplayName)
		require.NoError(t, err)
		assert.True(t, complete)
		assert.Equal(t, wiretap.NodeHost, n.Type())
	})

	t.Run("PartialMatch", func(t *testing.T) {
		n, complete, err := f.dir.Navigate(ctx, host+"/stonefs/show/nope/reel 1", ByDisplayName)
		require.NoError(t, err)
		assert.False(t, complete)
		assert.Equal(t, "/stonefs/show", n.ID())
	})

	t.Run("UnknownHost", func(t *testing.T) {
		n, complete, err := f.dir.Navigate(ctx, "saturn:IFFFS/stonefs", ByDisplayName)
		require.NoError(t, err)
		assert.False(t, complete)
		assert.Nil(t, n)
	})

	t.Run("DisplayNamesAreNotIDs", func(t *testing.T) {
		_, complete, err := f.dir.Navigate(ctx, host+"/stonefs/show/dailies", ByNodeID)
		require.NoError(t, err)
		assert.False(t, complete)
	})
}

func TestValidateContainerPath(t *testing.T) {
	f := newFixture(t, Options{})

	tests := []struct {
		name string
		path string
		want string
		code wiretap.ErrorCode
		ok   bool
	}{
		{"Library", "mars:IFFFS/vol/proj/lib", "mars:IFFFS/vol/proj/lib", 0, true},
		{"Reel", "mars:IFFFS/vol/proj/lib/reel", "mars:IFFFS/vol/proj/lib/reel", 0, true},
		{"FixesHostnameCase", "MARS:ifffs/vol/proj/lib", "mars:IFFFS/vol/proj/lib", 0, true},
		{"TooShort", "mars:IFFFS/vol/proj", "", wiretap.ErrInvalidPath, false},
		{"TooLong", "mars:IFFFS/vol/proj/lib/reel/clip", "", wiretap.ErrInvalidPath, false},
		{"UnknownHost", "saturn:IFFFS/vol/proj/lib", "", wiretap.ErrInvalidHostname, false},
		{"FilteredHost", "venus:Gateway/vol/proj/lib", "", wiretap.ErrInvalidHostname, false},
		{"Empty", "", "", wiretap.ErrInvalidPath, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.dir.ValidateContainerPath(tt.path)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			require.Error(t, err)
			assert.True(t, wiretap.IsCode(err, tt.code), err.Error())
		})
	}

	assert.Zero(t, f.env.Faults.Count(wiretaptest.OpChildren))
	assert.Zero(t, f.env.Faults.Count(wiretaptest.OpConnect))
}

func TestResolveContainer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	n, err := f.dir.ResolveContainer(ctx, "mars:ifffs/stonefs/show/dailies/reel 1")
	require.NoError(t, err)
	assert.Equal(t, f.reel, n.ID())

	_, err = f.dir.ResolveContainer(ctx, host+"/stonefs/show/dailies/shot_010")
	assert.True(t, wiretap.IsCode(err, wiretap.ErrInvalidPath))

	_, err = f.dir.ResolveContainer(ctx, host+"/stonefs/show/missing")
	assert.True(t, wiretap.IsCode(err, wiretap.ErrInvalidPath))
}
