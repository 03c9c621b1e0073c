package main

import (
	"bytes"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Multiverse88/Dentalpro/internal/domain/calendar"
	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
	"github.com/Multiverse88/Dentalpro/internal/platform/auth"
	"github.com/Multiverse88/Dentalpro/internal/sandbox"
)

func TestParseToothIDs(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{in: "3", want: []int{3}},
		{in: "3, 14 ,30", want: []int{3, 14, 30}},
		{in: "17-19,1", want: []int{17, 18, 19, 1}},
		{in: "", wantErr: true},
		{in: "0", wantErr: true},
		{in: "31-33", wantErr: true},
		{in: "5-2", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseToothIDs(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseToothIDs(%q) expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseToothIDs(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if toothList(got) != toothList(tt.want) {
			t.Errorf("parseToothIDs(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseStatusAndGender(t *testing.T) {
	if s, err := parseStatus("rootcanal"); err != nil || s != dental.StatusRootCanal {
		t.Errorf("parseStatus(rootcanal) = %q, %v", s, err)
	}
	if s, err := parseStatus(""); err != nil || s != "" {
		t.Errorf("empty status should mean no change, got %q, %v", s, err)
	}
	if _, err := parseStatus("Broken"); err == nil {
		t.Error("expected error for unknown status")
	}
	if g := parseGender("female"); g != dental.GenderFemale {
		t.Errorf("parseGender(female) = %q", g)
	}
}

func TestParseMonth(t *testing.T) {
	now := time.Date(2025, time.March, 9, 10, 0, 0, 0, time.UTC)
	y, m, err := parseMonth("", now)
	if err != nil || y != 2025 || m != time.March {
		t.Errorf("default month = %d-%d, %v", y, m, err)
	}
	y, m, err = parseMonth("2024-12", now)
	if err != nil || y != 2024 || m != time.December {
		t.Errorf("parseMonth(2024-12) = %d-%d, %v", y, m, err)
	}
	if _, _, err := parseMonth("12/2024", now); err == nil {
		t.Error("expected error for bad month")
	}
}

func TestRenderChart(t *testing.T) {
	p := dental.Patient{ID: "p1", Name: "Budi", Teeth: dental.FullSet(dental.StatusHealthy)}
	p.Teeth[2].Status = dental.StatusDecay
	p.Teeth[29].Status = dental.StatusCrown

	var buf bytes.Buffer
	renderChart(&buf, p)
	out := buf.String()
	for _, want := range []string{"D Karies: 1", "C Mahkota: 1", ". Sehat: 30", "32"} {
		if !strings.Contains(out, want) {
			t.Errorf("chart output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "incomplete") {
		t.Errorf("full chart reported incomplete:\n%s", out)
	}

	p.Teeth = p.Teeth[:30]
	buf.Reset()
	renderChart(&buf, p)
	if !strings.Contains(buf.String(), "no entry for teeth 31,32") {
		t.Errorf("expected missing teeth notice:\n%s", buf.String())
	}
}

func TestRenderPatientsAge(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	renderPatients(&buf, []dental.Patient{
		{ID: "p1", Name: "Siti", DateOfBirth: "1990-06-02", Gender: dental.GenderFemale},
		{ID: "p2", Name: "Rudi", DateOfBirth: "not-a-date", Gender: dental.GenderMale},
	}, now)
	out := buf.String()
	if !strings.Contains(out, "34") || !strings.Contains(out, "Perempuan") {
		t.Errorf("unexpected table:\n%s", out)
	}
}

// -- End to end --

type cli struct {
	t *testing.T
}

func (c cli) run(args ...string) (string, error) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs(args)
	root.SetIn(strings.NewReader(""))
	err := root.Execute()
	return out.String(), err
}

func (c cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("dentalpro %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func newCLI(t *testing.T) cli {
	t.Helper()
	e := sandbox.NewServer(sandbox.ServerConfig{
		Store:  sandbox.NewMemoryStore(),
		Tokens: auth.NewIssuer([]byte("cli-test-signing-key-0123"), "dentalpro-sandbox"),
		Logger: zerolog.Nop(),
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	t.Setenv("API_BASE_URL", srv.URL+"/api")
	t.Setenv("SESSION_STORE", "file")
	t.Setenv("SESSION_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("ENV", "test")
	return cli{t: t}
}

var addedID = regexp.MustCompile(`\(([0-9a-f-]{36})\)`)

func TestCLI_ChartingFlow(t *testing.T) {
	c := newCLI(t)

	if _, err := c.run("patients"); err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Fatalf("expected not logged in error, got %v", err)
	}

	c.mustRun("register", "--name", "Drg. Sari", "--email", "sari@klinik.test", "--password", "rahasia123", "--confirm", "rahasia123")
	out := c.mustRun("login", "--email", "sari@klinik.test", "--password", "rahasia123")
	if !strings.Contains(out, "Logged in as Drg. Sari") || !strings.Contains(out, "0 patients loaded") {
		t.Fatalf("unexpected login output:\n%s", out)
	}
	if out := c.mustRun("whoami"); !strings.Contains(out, "sari@klinik.test") {
		t.Errorf("unexpected whoami output: %s", out)
	}

	out = c.mustRun("patients", "add", "--name", "Budi Santoso", "--dob", "1985-04-12",
		"--gender", "male", "--contact", "081234567890", "--address", "Jl. Merdeka 1, Bandung")
	m := addedID.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no patient id in output:\n%s", out)
	}
	id := m[1]
	if !strings.Contains(out, "+6281234567890") {
		t.Errorf("contact not normalised:\n%s", out)
	}

	out = c.mustRun("treatments", "add", id, "--date", "2025-01-10", "--teeth", "3,14",
		"--procedure", "Tambal komposit", "--cost", "350000", "--status", "Filled")
	if !strings.Contains(out, "F Tambalan: 2") {
		t.Errorf("chart not updated after treatment:\n%s", out)
	}

	// the chart is read-only; statuses move only with a recorded treatment
	if _, err := c.run("chart", id, "--teeth", "30", "--status", "Decay"); err == nil {
		t.Error("expected chart to reject --status")
	}
	c.mustRun("treatments", "add", id, "--date", "2025-02-03", "--teeth", "30",
		"--procedure", "Pemeriksaan", "--status", "Decay")
	out = c.mustRun("chart", id, "--tooth", "3")
	if !strings.Contains(out, "D Karies: 1") || !strings.Contains(out, "Tambal komposit") {
		t.Errorf("unexpected chart output:\n%s", out)
	}
	out = c.mustRun("chart", id, "--tooth", "30")
	if !strings.Contains(out, "Pemeriksaan") {
		t.Errorf("decay not recorded as a treatment:\n%s", out)
	}

	out = c.mustRun("patients", "--search", "budi")
	if !strings.Contains(out, "Budi Santoso") || !strings.Contains(out, "1 of 1 patients") {
		t.Errorf("unexpected patient list:\n%s", out)
	}
	out = c.mustRun("patients", "--gender", "female")
	if !strings.Contains(out, "0 of 1 patients") {
		t.Errorf("gender filter not applied:\n%s", out)
	}

	out = c.mustRun("records", "add", id, "--tooth", "14", "--date", "2025-01-10", "--type", "Tambalan", "--description", "Karies oklusal")
	if !strings.Contains(out, "Karies oklusal") {
		t.Errorf("record missing:\n%s", out)
	}

	out = c.mustRun("appointments", "add", "--patient", id, "--date", "2025-02-01", "--time", "09:30")
	if !strings.Contains(out, "Budi Santoso") || !strings.Contains(out, "pending") {
		t.Errorf("appointment missing:\n%s", out)
	}
	out = c.mustRun("queue", "add", id)
	if !strings.Contains(out, "waiting") {
		t.Errorf("queue entry missing:\n%s", out)
	}

	out = c.mustRun("dashboard")
	if !strings.Contains(out, "Patients:   1") || !strings.Contains(out, "Treatments: 2") {
		t.Errorf("unexpected dashboard:\n%s", out)
	}
	// the treatment is stored at UTC midnight and shown on its local day
	key, _ := calendar.DayKey("2025-01-10T00:00:00.000Z", time.Local)
	day := strings.TrimLeft(key[8:], "0")
	out = c.mustRun("calendar", "--month", "2025-01")
	if !strings.Contains(out, "Januari 2025") || !strings.Contains(out, day+" (1)") {
		t.Errorf("unexpected calendar:\n%s", out)
	}

	c.mustRun("logout")
	if _, err := c.run("dashboard"); err == nil {
		t.Error("expected dashboard to fail after logout")
	}
}

func TestCLI_Validation(t *testing.T) {
	c := newCLI(t)
	c.mustRun("register", "--name", "Drg. Sari", "--email", "sari@klinik.test", "--password", "rahasia123", "--confirm", "rahasia123")
	c.mustRun("login", "--email", "sari@klinik.test", "--password", "rahasia123")

	if _, err := c.run("patients", "add", "--name", "Tanpa Kontak"); err == nil {
		t.Error("expected incomplete patient form to fail")
	}
	if _, err := c.run("patients", "--sort", "random"); err == nil {
		t.Error("expected unknown sort key to fail")
	}
	if _, err := c.run("patients", "--min-age", "tua"); err == nil {
		t.Error("expected bad age bound to fail")
	}
	if _, err := c.run("chart", "no-such-patient"); err == nil || !strings.Contains(err.Error(), "patient not found") {
		t.Errorf("expected patient not found, got %v", err)
	}
}
