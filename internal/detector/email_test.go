package detector

import (
	"fmt"
	"strings"
	"testing"

	"github.com/example/phishguard/internal/emailtext"
	"github.com/example/phishguard/internal/refdata"
)

func TestEmailIdentityDetector(t *testing.T) {
	d := emailIdentityDetector{data: refdata.Default()}
	tests := []struct {
		name string
		msg  emailtext.Message
		want bool
		conf int
	}{
		{
			name: "display name spoof",
			msg:  emailtext.Message{DisplayName: "PayPal Security", Address: "alerts@pp-notice.net", Domain: "pp-notice.net"},
			want: true, conf: 95,
		},
		{
			name: "brand talk from free mail",
			msg: emailtext.Message{DisplayName: "Helpdesk", Address: "desk@gmail.com", Domain: "gmail.com",
				Body: "Your Netflix account is on hold, verify your billing details."},
			want: true, conf: 85,
		},
		{
			name: "brand mention from free mail without lure wording",
			msg: emailtext.Message{DisplayName: "Jane", Address: "jane.doe@gmail.com", Domain: "gmail.com",
				Body: "Your Netflix membership info is attached, Netflix says hello."},
			want: true, conf: 85,
		},
		{
			name: "genuine sender",
			msg:  emailtext.Message{DisplayName: "PayPal", Address: "service@mail.paypal.com", Domain: "mail.paypal.com"},
			want: false, conf: 70,
		},
		{
			name: "no sender",
			msg:  emailtext.Message{Body: "hello"},
			want: false, conf: 40,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			ev := detectText(d, msg.Body, &msg)
			if ev.Detected != tt.want || ev.Confidence != tt.conf {
				t.Errorf("got %+v", ev)
			}
		})
	}
}

func TestEmailPayloadDetector(t *testing.T) {
	d := newEmailPayloadDetector(refdata.Default())
	tests := []struct {
		name string
		msg  emailtext.Message
		want bool
		conf int
	}{
		{"double extension", emailtext.Message{Attachments: []string{"invoice.pdf.exe"}}, true, 95},
		{"executable with install lure", emailtext.Message{Attachments: []string{"setup.exe"}, Body: "Please install the attached update today."}, true, 85},
		{"password archive", emailtext.Message{Body: "The zip is protected, password: 1234"}, true, 80},
		{"harmless attachment", emailtext.Message{Attachments: []string{"photo.jpg"}}, false, 70},
		{"nothing", emailtext.Message{Body: "See you soon"}, false, 75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			ev := detectText(d, msg.Body, &msg)
			if ev.Detected != tt.want || ev.Confidence != tt.conf {
				t.Errorf("got %+v", ev)
			}
		})
	}
}

func TestEmailPatternDetector(t *testing.T) {
	d := newEmailPatternDetector(refdata.Default())

	scam := emailtext.Message{
		From:        `"Security Team" <security-alerts@gmail.com>`,
		DisplayName: "Security Team", Address: "security-alerts@gmail.com", Domain: "gmail.com",
		Subject: "Action required",
		Body: "Dear Customer, you have been selected for a mandatory review. Your PayPal account is suspended. " +
			"Act now: click here to restore access. Open the attached invoice for details.",
	}
	ev := detectText(d, scam.Body, &scam)
	if !ev.Detected {
		t.Fatalf("phishing email should be detected: %+v", ev)
	}
	for _, signal := range []string{"suspicious sender header", "paypal named by a free mailbox", "click-here link wording",
		"attachment bait", "canned phishing grammar", "urgency phrasing"} {
		if !strings.Contains(ev.Details, signal) {
			t.Errorf("expected signal %q in %q", signal, ev.Details)
		}
	}

	callback := emailtext.Message{
		Subject: "RE: Order confirmation",
		Body:    "Dear customer, your subscription renews today. Call our helpline at +1 201-555-0123 to cancel.",
	}
	if ev := detectText(d, callback.Body, &callback); !ev.Detected || !strings.Contains(ev.Details, "callback number") {
		t.Fatalf("callback scam should be detected: %+v", ev)
	}

	normal := emailtext.Message{Subject: "Lunch", Body: "Hi Sam, see you at noon."}
	if ev := detectText(d, normal.Body, &normal); ev.Detected {
		t.Errorf("normal email detected: %+v", ev)
	}
}

func TestEmailPatternSignalFamilies(t *testing.T) {
	d := newEmailPatternDetector(refdata.Default())
	tests := []struct {
		name   string
		msg    emailtext.Message
		signal string
		points int
	}{
		{
			name:   "free mailbox posing as a desk",
			msg:    emailtext.Message{From: "Support <helpdesk.support@gmail.com>", DisplayName: "Support", Address: "helpdesk.support@gmail.com", Domain: "gmail.com", Body: "Hello."},
			signal: "suspicious sender header", points: senderHeaderPoints,
		},
		{
			name:   "display name carries another address",
			msg:    emailtext.Message{From: "billing@bank.example <x@mailer.test>", DisplayName: "billing@bank.example", Address: "x@mailer.test", Domain: "mailer.test", Body: "Hello."},
			signal: "suspicious sender header", points: senderHeaderPoints,
		},
		{
			name:   "brand from free mail",
			msg:    emailtext.Message{DisplayName: "Jane", Address: "jane@gmail.com", Domain: "gmail.com", Body: "Netflix says hello."},
			signal: "netflix named by a free mailbox", points: brandFreeMailPoints,
		},
		{
			name:   "click here",
			msg:    emailtext.Message{Body: "To continue, click here."},
			signal: "click-here link wording", points: clickWordingPoints,
		},
		{
			name:   "attachment bait",
			msg:    emailtext.Message{Body: "Please see the attached statement."},
			signal: "attachment bait", points: attachmentBaitPoints,
		},
		{
			name:   "canned grammar",
			msg:    emailtext.Message{Body: "Congratulations, you have been selected."},
			signal: "canned phishing grammar", points: cannedGrammarPoints,
		},
		{
			name:   "urgency",
			msg:    emailtext.Message{Body: "Reply immediately."},
			signal: "urgency phrasing", points: urgencyPoints,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			ev := detectText(d, msg.Body, &msg)
			if ev.Details != tt.signal {
				t.Errorf("signals = %q, want %q", ev.Details, tt.signal)
			}
			if want := fmt.Sprintf("(%d points)", tt.points); !strings.Contains(ev.Reason, want) {
				t.Errorf("reason %q, want %s", ev.Reason, want)
			}
			if ev.Detected {
				t.Errorf("a single family must stay below the threshold: %+v", ev)
			}
		})
	}
}

func TestEmailPatternThreshold(t *testing.T) {
	d := newEmailPatternDetector(refdata.Default())

	// canned grammar + urgency + click wording
	below := emailtext.Message{DisplayName: "Sam", Address: "sam@example.org", Domain: "example.org",
		Subject: "Notice", Body: "Dear customer, please act now and click here to continue."}
	ev := detectText(d, below.Body, &below)
	if ev.Detected || !strings.Contains(ev.Reason, "(24 points)") {
		t.Fatalf("24 points must not be detected: %+v", ev)
	}

	// brand from free mail + click wording + attachment bait
	at := emailtext.Message{DisplayName: "Jane", Address: "jane.doe@gmail.com", Domain: "gmail.com",
		Subject: "Hello", Body: "Netflix: click here. See the attached invoice."}
	ev = detectText(d, at.Body, &at)
	if !ev.Detected || !strings.Contains(ev.Reason, "(25 points)") {
		t.Fatalf("25 points must be detected: %+v", ev)
	}
}

func TestEmailCollectorsAreHeuristic(t *testing.T) {
	data := refdata.Default()
	msg := emailtext.Message{
		DisplayName: "PayPal Security", Address: "alerts@pp-notice.net", Domain: "pp-notice.net",
		Attachments: []string{"invoice.pdf.exe"},
	}
	for _, d := range []Detector{emailIdentityDetector{data: data}, newEmailPayloadDetector(data)} {
		src := Stamp(d.Info(), detectText(d, msg.Body, &msg))
		if !src.Detected {
			t.Fatalf("%s should detect: %+v", src.ID, src)
		}
		if src.Tier != TierHeuristic || src.IsReal {
			t.Errorf("%s: tier=%s isReal=%v, want T3 and not real", src.ID, src.Tier, src.IsReal)
		}
	}
}

func TestCallbackNumber(t *testing.T) {
	if _, ok := callbackNumber("Call us now on +1 201-555-0123"); !ok {
		t.Error("expected a callback number")
	}
	if _, ok := callbackNumber("Order 201-555-0123 shipped"); ok {
		t.Error("numbers without call wording should be ignored")
	}
}
