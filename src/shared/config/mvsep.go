package config

type MVSep struct {
	APIToken string
	// APIHost overrides the production MVSep API host, used for
	// local fakes in tests. Empty means the real service.
	APIHost string
}
