package daemon

import (
	"regexp"

	"github.com/floresta-chain/nodeharness/errors"
)

// Variant identifies one of the interchangeable node daemon implementations
// the harness can drive.
type Variant int

const (
	Floresta Variant = iota
	Utreexo
	Bitcoind
)

func (v Variant) String() string {
	switch v {
	case Floresta:
		return "florestad"
	case Utreexo:
		return "utreexod"
	case Bitcoind:
		return "bitcoind"
	default:
		return "unknown"
	}
}

// ParseVariant maps a daemon name to its Variant.
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "florestad":
		return Floresta, nil
	case "utreexod":
		return Utreexo, nil
	case "bitcoind":
		return Bitcoind, nil
	default:
		return 0, errors.NewInvalidArgumentError("unsupported variant: %s, use 'florestad', 'utreexod' or 'bitcoind'", s)
	}
}

// PortSpec names one runtime-bound port and the log signature that announces
// it. Required ports gate readiness; optional ones are collected only during
// the grace period after all required ports were seen.
type PortSpec struct {
	Name     string
	Pattern  *regexp.Regexp
	Required bool
}

// PortRange is the window the orchestrator samples default listen ports from.
type PortRange struct {
	Start int
	End   int
}

// TLSSpec describes how a variant is switched to TLS. Flag spellings differ
// per daemon; an unsupported variant has Supported false.
type TLSSpec struct {
	Supported   bool
	EnableArgs  []string // static args appended when TLS is on
	DisableArgs []string // static args appended when TLS is off
	KeyFlag     string
	CertFlag    string
	ListenFlag  string
	ListenRange PortRange
	PortOnly    bool // flag takes a bare port instead of host:port
}

// VariantSpec is the strategy table entry for one daemon variant: executable
// name, flag spellings, default port ranges and readiness patterns.
type VariantSpec struct {
	Variant     Variant
	Executable  string
	DataDirFlag string

	PeerFlag  string
	PeerRange PortRange

	RPCFlag  string
	RPCRange PortRange

	ElectrumFlag  string
	ElectrumRange PortRange

	// static defaults always appended when synthesizing arguments
	ExtraDefaults []string

	TLS TLSSpec

	PortSpecs []PortSpec

	RPCUser     string
	RPCPassword string
	ProbeMethod string
}

// RequiredPortNames returns the names of every required port spec.
func (s VariantSpec) RequiredPortNames() []string {
	names := make([]string, 0, len(s.PortSpecs))

	for _, ps := range s.PortSpecs {
		if ps.Required {
			names = append(names, ps.Name)
		}
	}

	return names
}

var variantSpecs = map[Variant]VariantSpec{
	Floresta: {
		Variant:       Floresta,
		Executable:    "florestad",
		DataDirFlag:   "--data-dir",
		RPCFlag:       "--rpc-address",
		RPCRange:      PortRange{18443, 19443},
		ElectrumFlag:  "--electrum-address",
		ElectrumRange: PortRange{20001, 21001},
		TLS: TLSSpec{
			Supported:   true,
			EnableArgs:  []string{"--enable-electrum-tls"},
			KeyFlag:     "--tls-key-path",
			CertFlag:    "--tls-cert-path",
			ListenFlag:  "--electrum-address-tls",
			ListenRange: PortRange{20002, 21002},
		},
		PortSpecs: []PortSpec{
			{Name: "rpc", Pattern: regexp.MustCompile(`RPC server is running at [0-9.]+:(\d+)`), Required: true},
			{Name: "electrum-server", Pattern: regexp.MustCompile(`Electrum Server is running at [0-9.]+:(\d+)`), Required: true},
			{Name: "electrum-server-tls", Pattern: regexp.MustCompile(`Electrum TLS Server is running at [0-9.]+:(\d+)`)},
		},
		ProbeMethod: "getblockchaininfo",
	},
	Utreexo: {
		Variant:       Utreexo,
		Executable:    "utreexod",
		DataDirFlag:   "--datadir",
		PeerFlag:      "--listen",
		PeerRange:     PortRange{18444, 19444},
		RPCFlag:       "--rpclisten",
		RPCRange:      PortRange{18443, 19443},
		ElectrumFlag:  "--electrumlisteners",
		ElectrumRange: PortRange{20001, 21001},
		TLS: TLSSpec{
			Supported:   true,
			DisableArgs: []string{"--notls"},
			KeyFlag:     "--rpckey",
			CertFlag:    "--rpccert",
			ListenFlag:  "--tlselectrumlisteners",
			ListenRange: PortRange{20002, 21002},
			PortOnly:    true,
		},
		PortSpecs: []PortSpec{
			{Name: "rpc", Pattern: regexp.MustCompile(`RPCS: RPC server listening on [\d.]+:(\d+)`), Required: true},
			{Name: "p2p", Pattern: regexp.MustCompile(`CMGR: Server listening on [\d.]+:(\d+)`), Required: true},
		},
		RPCUser:     "utreexo",
		RPCPassword: "utreexo",
		ProbeMethod: "getinfo",
	},
	Bitcoind: {
		Variant:       Bitcoind,
		Executable:    "bitcoind",
		DataDirFlag:   "-datadir",
		PeerFlag:      "-bind",
		PeerRange:     PortRange{18445, 19445},
		RPCFlag:       "-rpcbind",
		RPCRange:      PortRange{20443, 21443},
		ExtraDefaults: []string{"-rpcallowip=127.0.0.1"},
		TLS:           TLSSpec{},
		PortSpecs: []PortSpec{
			{Name: "rpc", Pattern: regexp.MustCompile(`Binding RPC on address [0-9.]+ port (\d+)`), Required: true},
			{Name: "p2p", Pattern: regexp.MustCompile(`Bound to [0-9.]+:(\d+)`), Required: true},
		},
		RPCUser:     "bitcoin",
		RPCPassword: "bitcoin",
		ProbeMethod: "getblockchaininfo",
	},
}

// Spec returns the strategy table entry for v.
func Spec(v Variant) VariantSpec {
	return variantSpecs[v]
}
