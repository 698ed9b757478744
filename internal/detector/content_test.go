package detector

import (
	"context"
	"testing"

	"github.com/example/phishguard/internal/emailtext"
	"github.com/example/phishguard/internal/refdata"
)

func detectText(d Detector, text string, msg *emailtext.Message) Evidence {
	mode := ModeURL
	if msg != nil {
		mode = ModeEmail
	}
	return d.Detect(context.Background(), Input{Mode: mode, Text: text, Email: msg})
}

func TestNLPDetector(t *testing.T) {
	d := newNLPDetector(refdata.Default())
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"urgent security lure", "URGENT: your account has been suspended. Verify your password immediately or it will be locked. Click here.", true},
		{"two families", "Congratulations, you won a prize! Pay the invoice to release it.", true},
		{"one keyword repeated", "Urgent. This is urgent, really urgent.", true},
		{"single financial word", "Your invoice for March is attached.", false},
		{"small talk", "Lunch tomorrow at noon?", false},
		{"empty", "   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := detectText(d, tt.text, nil)
			if ev.Detected != tt.want {
				t.Errorf("got %+v", ev)
			}
		})
	}
}

func TestNLPRiskBonuses(t *testing.T) {
	d := newNLPDetector(refdata.Default())
	plain := detectText(d, "Urgent: verify your account", nil)
	boosted := detectText(d, "Urgent: verify your account. Click here and enter card 4111 1111 1111 1111", &emailtext.Message{
		DisplayName: "Security Team", Address: "security.team@gmail.com", Domain: "gmail.com",
	})
	if !plain.Detected || !boosted.Detected {
		t.Fatalf("both texts should be detected: %+v %+v", plain, boosted)
	}
	if boosted.Confidence <= plain.Confidence {
		t.Errorf("bonus signals should raise confidence: %d <= %d", boosted.Confidence, plain.Confidence)
	}
}

func TestCryptoScamDetector(t *testing.T) {
	d := newCryptoScamDetector(refdata.Default())
	tests := []struct {
		name string
		text string
		want bool
		conf int
	}{
		{"seed phrase request", "Send your 12-word seed phrase to claim the airdrop", true, 95},
		{"wallet address giveaway", "Send 0.1 BTC to 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa today", true, 80},
		{"price chatter", "Bitcoin price went up again", false, 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := detectText(d, tt.text, nil)
			if ev.Detected != tt.want || ev.Confidence != tt.conf {
				t.Errorf("got %+v", ev)
			}
		})
	}

	src := Stamp(d.Info(), detectText(d, "Enter your recovery phrase to unlock your wallet", nil))
	if !src.Detected || !src.IsReal {
		t.Errorf("seed phrase solicitation must be real evidence: %+v", src)
	}
}
