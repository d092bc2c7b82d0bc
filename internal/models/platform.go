package models

// Platform identifies an external social platform a creator account lives on.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
)

// SupportedPlatforms is the fixed set of platforms the engine can sync.
var SupportedPlatforms = []Platform{
	PlatformInstagram,
	PlatformTikTok,
	PlatformYouTube,
}

// IsSupported reports whether p is one of the platforms the engine syncs.
func (p Platform) IsSupported() bool {
	for _, s := range SupportedPlatforms {
		if p == s {
			return true
		}
	}
	return false
}

func (p Platform) String() string {
	return string(p)
}
