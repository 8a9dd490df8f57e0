package pnr

import "testing"

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     string
		wantTier Tier
	}{
		{"boarding pass", "M1DOE/JOHN  AB1234 LHRJFKBA 0123", "AB1234", TierBoardingPass},
		{"boarding pass seven chars", "M1SMITH/JANE MRS      XK9Q2LM JFKLAXAA 0042", "XK9Q2LM", TierBoardingPass},
		{"boarding pass at end", "M1DOE/JOHN AB1234", "AB1234", TierBoardingPass},
		{"boarding pass trailing newline", "M1DOE/JOHN  AB1234\r\n", "AB1234", TierBoardingPass},
		{"passenger segment without format code", "DOE/JOHN QWE123 GATE 4", "QWE123", TierBoardingPass},
		{"boarding pass beats earlier loose token", "ZZ9999 M1DOE/JOHN  AB1234 X", "AB1234", TierBoardingPass},
		{"loose fallback", "garbled ##PNR:LMN456## rest", "LMN456", TierLoose},
		{"loose seven", "ticket 1234567", "1234567", TierLoose},
		{"loose ignores longer runs", "ABCDEFGHIJ then QRS789", "QRS789", TierLoose},
		{"no ticket data", "no ticket data", "", TierNone},
		{"too short", "AB123 CD45", "", TierNone},
		{"empty", "", "", TierNone},
		{"only longer runs", "ABCDEFGHIJKL 123456789", "", TierNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, tier := ExtractTier(tt.raw)
			if got != tt.want {
				t.Errorf("ExtractTier(%q) code = %q, want %q", tt.raw, got, tt.want)
			}
			if tier != tt.wantTier {
				t.Errorf("ExtractTier(%q) tier = %v, want %v", tt.raw, tier, tt.wantTier)
			}

			code, ok := Extract(tt.raw)
			if ok != (tt.want != "") || code != tt.want {
				t.Errorf("Extract(%q) = (%q, %v)", tt.raw, code, ok)
			}
		})
	}
}

func TestTierString(t *testing.T) {
	if TierBoardingPass.String() != "boarding_pass" || TierLoose.String() != "loose" || TierNone.String() != "none" {
		t.Error("unexpected Tier.String values")
	}
}
