package media_test

import (
	"testing"

	"github.com/e7canasta/capture-engine/internal/media"
)

func TestSelectDescription(t *testing.T) {
	profiles := []media.VideoProfile{
		{
			ID: "legacy",
			Preview: []media.Description{
				{Subtype: media.SubtypeBGRA8, Width: 640, Height: 480, FrameRate: 30},
				{Subtype: media.SubtypeNV12, Width: 640, Height: 480, FrameRate: 15},
			},
			Record: []media.Description{
				{Subtype: media.SubtypeNV12, Width: 1920, Height: 1080, FrameRate: 30},
			},
		},
		{
			ID: "hd",
			Preview: []media.Description{
				{Subtype: media.SubtypeNV12, Width: 1280, Height: 720, FrameRate: 30},
				{Subtype: media.SubtypeNV12, Width: 1280, Height: 720, FrameRate: 30},
			},
		},
	}

	tests := []struct {
		name        string
		role        media.StreamRole
		width       uint32
		height      uint32
		wantProfile string
		wantDesc    *media.Description
	}{
		{
			name:        "exact preview match",
			role:        media.RolePreview,
			width:       1280,
			height:      720,
			wantProfile: "hd",
			wantDesc:    &media.Description{Subtype: media.SubtypeNV12, Width: 1280, Height: 720, FrameRate: 30},
		},
		{
			name:        "exact record match",
			role:        media.RoleRecord,
			width:       1920,
			height:      1080,
			wantProfile: "legacy",
			wantDesc:    &media.Description{Subtype: media.SubtypeNV12, Width: 1920, Height: 1080, FrameRate: 30},
		},
		{
			name:        "wrong subtype falls back to first seen",
			role:        media.RolePreview,
			width:       640,
			height:      480,
			wantProfile: "legacy",
			wantDesc:    &media.Description{Subtype: media.SubtypeBGRA8, Width: 640, Height: 480, FrameRate: 30},
		},
		{
			name:        "no match falls back to first seen",
			role:        media.RolePreview,
			width:       4096,
			height:      2160,
			wantProfile: "legacy",
			wantDesc:    &media.Description{Subtype: media.SubtypeBGRA8, Width: 640, Height: 480, FrameRate: 30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, desc := media.SelectDescription(profiles, tt.role, tt.width, tt.height)
			if profile == nil || desc == nil {
				t.Fatalf("SelectDescription() = (%v, %v), want non-nil", profile, desc)
			}
			if profile.ID != tt.wantProfile {
				t.Errorf("profile = %s, want %s", profile.ID, tt.wantProfile)
			}
			if *desc != *tt.wantDesc {
				t.Errorf("description = %+v, want %+v", *desc, *tt.wantDesc)
			}
		})
	}
}

func TestSelectDescription_FirstMatchWins(t *testing.T) {
	// Two profiles both carry an exact match; enumeration order decides.
	profiles := []media.VideoProfile{
		{ID: "first", Preview: []media.Description{{Subtype: media.SubtypeNV12, Width: 1280, Height: 720, FrameRate: 30}}},
		{ID: "second", Preview: []media.Description{{Subtype: media.SubtypeNV12, Width: 1280, Height: 720, FrameRate: 30}}},
	}

	profile, _ := media.SelectDescription(profiles, media.RolePreview, 1280, 720)
	if profile.ID != "first" {
		t.Errorf("profile = %s, want first", profile.ID)
	}
}

func TestSelectDescription_Empty(t *testing.T) {
	profile, desc := media.SelectDescription(nil, media.RolePreview, 1280, 720)
	if profile != nil || desc != nil {
		t.Errorf("SelectDescription(nil) = (%v, %v), want (nil, nil)", profile, desc)
	}

	profile, desc = media.SelectDescription([]media.VideoProfile{{ID: "bare"}}, media.RolePreview, 1280, 720)
	if profile != nil || desc != nil {
		t.Errorf("SelectDescription(bare) = (%v, %v), want (nil, nil)", profile, desc)
	}
}

func TestCharacteristicIdentical(t *testing.T) {
	tests := []struct {
		c    media.Characteristic
		want bool
	}{
		{media.CharacteristicAllStreamsIdentical, true},
		{media.CharacteristicPreviewRecordIdentical, true},
		{media.CharacteristicIndependentStreams, false},
	}
	for _, tt := range tests {
		if got := tt.c.Identical(); got != tt.want {
			t.Errorf("Characteristic(%d).Identical() = %v, want %v", tt.c, got, tt.want)
		}
	}
}

func TestNewEncodingProfile(t *testing.T) {
	p := media.NewEncodingProfile(media.QualityHD720p)

	if !p.HasAudio() || !p.HasVideo() {
		t.Fatal("baseline profile must carry audio and video")
	}
	if p.Video.Width != 1280 || p.Video.Height != 720 {
		t.Errorf("baseline video = %dx%d, want 1280x720", p.Video.Width, p.Video.Height)
	}
	if p.Video.Subtype != media.SubtypeH264 || p.Audio.Subtype != media.SubtypeAAC {
		t.Errorf("baseline subtypes = %s/%s, want H264/AAC", p.Video.Subtype, p.Audio.Subtype)
	}

	p.Audio = nil
	if p.HasAudio() {
		t.Error("HasAudio() = true after clearing audio")
	}
	var nilProfile *media.EncodingProfile
	if nilProfile.HasVideo() {
		t.Error("nil profile reports video")
	}
}
