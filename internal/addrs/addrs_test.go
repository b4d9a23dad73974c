package addrs

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"wrapped sol mint", "So11111111111111111111111111111111111111112", false},
		{"usdc mint", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", false},
		{"empty", "", true},
		{"not base58", "0x52908400098527886E0F7030069857D2E4169EE7", true},
		{"too short", "abc", true},
		{"garbage", "!!!!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) err = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	const addr = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	got, err := Normalize(addr)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got != addr {
		t.Errorf("Normalize(%q) = %q", addr, got)
	}
}
