package registry

// Pharos testnet deployments the bot interacts with. These are defaults; every
// one of them can be overridden through the config file or PHAROS_* env vars.
const (
	ZenithRouter    = "0x1a4de519154ae51200b0ad7c90f7fac75547888a"
	FaroswapRouter  = "0x3541423f25A1Ca5C98fdBCf478405d3f0aaD1164"
	PositionManager = "0xf8a1d4ff0f9b9af7ce58e1fc1833688f3bfd6115"

	WrappedPHRS = "0x76aaada469d23216be5f7c596fa25f282ff9b364"
	USDT        = "0xD4071393f8716661958F766DF660033b3d35fD29"
	USDC        = "0x72df0bcd7276f2dfbac900d1ce63c272c4bccced"
)

// DefaultTargetTokens are the tokens round-tripped against WPHRS each iteration.
var DefaultTargetTokens = []string{USDC, USDT}

// DefaultPositionIDs maps a target token (lowercase address) to the liquidity
// position the bot tops up. Tokens without an entry skip the liquidity phase.
var DefaultPositionIDs = map[string]uint64{
	"0x72df0bcd7276f2dfbac900d1ce63c272c4bccced": 1234,
	"0xd4071393f8716661958f766df660033b3d35fd29": 501381747380774316,
}
