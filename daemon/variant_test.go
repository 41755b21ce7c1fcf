package daemon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariant(t *testing.T) {
	for _, name := range []string{"florestad", "utreexod", "bitcoind"} {
		v, err := ParseVariant(name)
		require.NoError(t, err)
		assert.Equal(t, name, v.String())
	}

	_, err := ParseVariant("geth")
	require.Error(t, err)
}

func TestVariantTableIsComplete(t *testing.T) {
	for _, v := range []Variant{Floresta, Utreexo, Bitcoind} {
		spec := Spec(v)

		assert.Equal(t, v, spec.Variant)
		assert.NotEmpty(t, spec.Executable)
		assert.NotEmpty(t, spec.DataDirFlag)
		assert.NotEmpty(t, spec.RPCFlag)
		assert.NotEmpty(t, spec.ProbeMethod)
		assert.NotEmpty(t, spec.RequiredPortNames())
		assert.Contains(t, spec.RequiredPortNames(), "rpc", "every variant announces its rpc port")

		for _, ps := range spec.PortSpecs {
			require.NotNil(t, ps.Pattern, "%s/%s", v, ps.Name)
			assert.Equal(t, 1, ps.Pattern.NumSubexp(), "%s/%s must capture exactly the port", v, ps.Name)
		}
	}
}

func TestVariantPatternsMatchKnownLogLines(t *testing.T) {
	cases := map[Variant]map[string]string{
		Floresta: {
			"rpc":                 "2026-01-02 10:00:00 INFO RPC server is running at 127.0.0.1:18443",
			"electrum-server":     "2026-01-02 10:00:00 INFO Electrum Server is running at 127.0.0.1:20001",
			"electrum-server-tls": "2026-01-02 10:00:01 INFO Electrum TLS Server is running at 127.0.0.1:20002",
		},
		Utreexo: {
			"rpc": "2026-01-02 10:00:00 [INF] RPCS: RPC server listening on 127.0.0.1:18443",
			"p2p": "2026-01-02 10:00:00 [INF] CMGR: Server listening on 127.0.0.1:18444",
		},
		Bitcoind: {
			"rpc": "2026-01-02T10:00:00Z Binding RPC on address 127.0.0.1 port 20443",
			"p2p": "2026-01-02T10:00:00Z Bound to 127.0.0.1:18445",
		},
	}

	for variant, lines := range cases {
		spec := Spec(variant)

		for _, ps := range spec.PortSpecs {
			line, ok := lines[ps.Name]
			require.True(t, ok, "no sample line for %s/%s", variant, ps.Name)
			assert.True(t, ps.Pattern.MatchString(line), "%s/%s pattern did not match %q", variant, ps.Name, line)
		}
	}
}

func TestTLSSupportPerVariant(t *testing.T) {
	assert.True(t, Spec(Floresta).TLS.Supported)
	assert.True(t, Spec(Utreexo).TLS.Supported)
	assert.False(t, Spec(Bitcoind).TLS.Supported)

	assert.True(t, Spec(Utreexo).TLS.PortOnly, "utreexod takes a bare port for its TLS electrum listener")
	assert.NotEmpty(t, Spec(Utreexo).TLS.DisableArgs)
}
