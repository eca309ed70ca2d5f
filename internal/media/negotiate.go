package media

import "log/slog"

// SelectDescription scans known profiles for the role-appropriate stream
// description matching the requested size.
//
// Selection is first-match, not best-match: profiles are scanned in
// enumeration order and within each profile the role's descriptions are
// scanned in enumeration order. The first description seen overall is
// remembered as the fallback default. A description matches when its subtype
// is NV12, its dimensions equal the request exactly and its frame rate is 30.
//
// When nothing matches, the fallback profile/description pair is returned.
// Both results are nil only when no profile carries any description.
func SelectDescription(profiles []VideoProfile, role StreamRole, width, height uint32) (*VideoProfile, *Description) {
	var fallbackProfile *VideoProfile
	var fallbackDesc *Description

	for i := range profiles {
		profile := &profiles[i]

		descriptions := profile.Record
		if role == RolePreview {
			descriptions = profile.Preview
		}

		for j := range descriptions {
			desc := &descriptions[j]

			slog.Debug("media: candidate description",
				"profile", profile.ID,
				"subtype", string(desc.Subtype),
				"width", desc.Width,
				"height", desc.Height,
				"frame_rate", desc.FrameRate,
			)

			if fallbackProfile == nil {
				fallbackProfile = profile
			}
			if fallbackDesc == nil {
				fallbackDesc = desc
			}

			if desc.Subtype == SubtypeNV12 &&
				desc.Width == width &&
				desc.Height == height &&
				desc.FrameRate == FrameRate30 {
				slog.Debug("media: description matched",
					"profile", profile.ID,
					"width", desc.Width,
					"height", desc.Height,
				)
				return profile, desc
			}
		}
	}

	return fallbackProfile, fallbackDesc
}
