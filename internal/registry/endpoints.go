package registry

// Pharos testnet network and API endpoints.
const (
	DefaultRPCURL = "https://testnet.dplabs-internal.com/"
	ExplorerURL   = "https://pharos-testnet.socialscan.io"

	APIBaseURL     = "https://api.pharosnetwork.xyz"
	LoginPath      = "/user/login"
	CheckInPath    = "/sign/in"
	LoginChallenge = "pharos"
	WalletName     = "OKX Wallet"
)

// BaseHeaders returns the fixed browser-like headers the Pharos API expects.
func BaseHeaders() map[string]string {
	return map[string]string{
		"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36",
		"Referer":    "https://testnet.pharosnetwork.xyz/",
	}
}
