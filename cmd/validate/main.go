// Command validate consumes risk-profile messages from Kafka and performs
// structural integrity checks on each payload: identifier format, required
// fields per calamity type, geometry shape, and concentration-table
// monotonicity. It is meant for smoke-testing a running deployment.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -brokers localhost:9092 \
//	  -topic risk-profiles \
//	  -count 10 \
//	  -timeout 60s
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/industrisk/falloutsim/internal/adapter/kafka"
	"github.com/industrisk/falloutsim/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	brokers := flag.String("brokers", "localhost:9092", "comma-separated Kafka broker addresses")
	topic := flag.String("topic", "risk-profiles", "risk-profile topic to consume")
	group := flag.String("group", "falloutsim-validate", "consumer group id")
	count := flag.Int("count", 10, "number of messages to validate before reporting")
	timeout := flag.Duration("timeout", 60*time.Second, "give up after this long without collecting -count messages")
	flag.Parse()

	if code := run(*brokers, *topic, *group, *count, *timeout); code != 0 {
		os.Exit(code)
	}
}

func run(brokers, topic, group string, count int, timeout time.Duration) int {
	fmt.Println("=== Risk Profile Integrity Validation ===")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: strings.Split(brokers, ","),
		Topic:   topic,
		GroupID: group,
	})
	defer reader.Close()

	phases := []*phase{
		{name: "Phase 1: Envelope (key, headers, identity)"},
		{name: "Phase 2: Result shape per calamity type"},
		{name: "Phase 3: Geometry (fallout polygon)"},
		{name: "Phase 4: Concentration tables"},
	}

	collected := 0
	for collected < count {
		msg, err := reader.ReadMessage(ctx)
		if errors.Is(err, context.DeadlineExceeded) {
			fmt.Printf("timed out after %d of %d messages\n", collected, count)
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: read message: %v\n", err)
			return 1
		}

		var profile kafka.RiskProfileMessage
		if err := json.Unmarshal(msg.Value, &profile); err != nil {
			phases[0].errorf("offset %d: payload is not valid JSON: %v", msg.Offset, err)
			collected++
			continue
		}

		validateEnvelope(phases[0], msg, &profile)
		validateResultShape(phases[1], &profile)
		validateGeometry(phases[2], &profile)
		validateConcentrations(phases[3], &profile)
		collected++
	}

	fmt.Println()
	allPassed := collected > 0
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-46s %s\n", p.name, status)
	}
	fmt.Printf("\nMessages validated: %d\n", collected)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateEnvelope checks message key, headers, and identity fields.
func validateEnvelope(p *phase, msg kafkago.Message, profile *kafka.RiskProfileMessage) {
	id := profile.SimulationID

	if id == "" {
		p.errorf("offset %d: simulation_id is empty", msg.Offset)
		return
	}
	if !strings.HasPrefix(id, "sim_tox_") {
		p.errorf("%s: simulation_id missing sim_tox_ prefix", id)
	}
	if string(msg.Key) != id {
		p.errorf("%s: message key %q does not match simulation_id", id, msg.Key)
	}
	if profile.SiteID == "" {
		p.errorf("%s: site_id is empty", id)
	}
	if profile.CompletedAt.IsZero() {
		p.errorf("%s: completed_at is zero", id)
	}

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["calamity_type"] != profile.CalamityType {
		p.errorf("%s: calamity_type header %q does not match payload %q", id, headers["calamity_type"], profile.CalamityType)
	}
	if _, err := time.Parse(time.RFC3339, headers["completed_at"]); err != nil {
		p.errorf("%s: completed_at header %q is not RFC3339", id, headers["completed_at"])
	}
}

// validateResultShape checks that calamity-specific result fields are present.
func validateResultShape(p *phase, profile *kafka.RiskProfileMessage) {
	id := profile.SimulationID
	r := profile.Result

	if r == nil {
		p.errorf("%s: result is nil", id)
		return
	}
	if r.CriticalRadiusKm <= 0 {
		p.errorf("%s: critical_radius_km %g is not positive", id, r.CriticalRadiusKm)
	}
	if r.Metrics.AffectedAreaKm2 <= 0 {
		p.errorf("%s: affected_area_km2 %g is not positive", id, r.Metrics.AffectedAreaKm2)
	}
	if r.Engine == "" {
		p.errorf("%s: engine label is empty", id)
	}

	switch domain.CalamityType(profile.CalamityType) {
	case domain.CalamityFire, domain.CalamityExplosion:
		if r.EmissionRateKgS <= 0 {
			p.errorf("%s: %s result has no emission rate", id, profile.CalamityType)
		}
		if r.TotalReleaseKg <= 0 {
			p.errorf("%s: %s result has no total release", id, profile.CalamityType)
		}
	case domain.CalamityFlood:
		if len(r.FlowPaths) != 8 {
			p.errorf("%s: flood result has %d flow paths, want 8", id, len(r.FlowPaths))
		}
		if r.Watershed == nil {
			p.errorf("%s: flood result has no watershed assessment", id)
		}
	case domain.CalamityEarthquake:
		if r.DamageLevel == "" {
			p.errorf("%s: earthquake result has no damage level", id)
		}
		if r.DamageProbability <= 0 || r.DamageProbability > 1 {
			p.errorf("%s: damage_probability %g out of (0, 1]", id, r.DamageProbability)
		}
	default:
		p.errorf("%s: unknown calamity_type %q", id, profile.CalamityType)
	}
}

// validateGeometry checks the fallout polygon is a closed ring.
func validateGeometry(p *phase, profile *kafka.RiskProfileMessage) {
	id := profile.SimulationID
	if profile.Result == nil {
		return
	}
	g := profile.Result.Fallout
	if g == nil {
		p.errorf("%s: fallout_geometry is nil", id)
		return
	}
	if g.Type != "Polygon" {
		p.errorf("%s: fallout geometry type %q, want Polygon", id, g.Type)
		return
	}

	// Coordinates round-trip through JSON as [][][]float64-shaped interfaces.
	rings, ok := g.Coordinates.([]interface{})
	if !ok || len(rings) == 0 {
		p.errorf("%s: fallout polygon has no rings", id)
		return
	}
	ring, ok := rings[0].([]interface{})
	if !ok {
		p.errorf("%s: fallout ring has unexpected shape", id)
		return
	}
	if len(ring) < 4 {
		p.errorf("%s: fallout ring has %d vertices, want at least 4", id, len(ring))
		return
	}
	first, last := fmt.Sprint(ring[0]), fmt.Sprint(ring[len(ring)-1])
	if first != last {
		p.errorf("%s: fallout ring is not closed (first %s, last %s)", id, first, last)
	}
}

// validateConcentrations checks distance tables decrease away from the source.
func validateConcentrations(p *phase, profile *kafka.RiskProfileMessage) {
	id := profile.SimulationID
	if profile.Result == nil {
		return
	}
	points := profile.Result.Concentrations
	if len(points) == 0 {
		// Earthquake results carry no concentration table.
		if domain.CalamityType(profile.CalamityType) != domain.CalamityEarthquake {
			p.errorf("%s: %s result has no concentration table", id, profile.CalamityType)
		}
		return
	}

	// Elevated dispersion plumes peak downwind of the source, so only flood
	// tables are required to decay monotonically.
	flood := domain.CalamityType(profile.CalamityType) == domain.CalamityFlood
	for i := 1; i < len(points); i++ {
		if points[i].DistanceKm <= points[i-1].DistanceKm {
			p.errorf("%s: concentration distances not increasing at index %d", id, i)
		}
		if flood && points[i].Concentration > points[i-1].Concentration {
			p.errorf("%s: concentration rises with distance at index %d (%g > %g)",
				id, i, points[i].Concentration, points[i-1].Concentration)
		}
	}
}
