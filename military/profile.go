package military

import (
	"fmt"
	"strings"
	"time"

	"github.com/0ad/0ad-sub001/model"
)

// CampaignType selects the tuning profile of a plan.
type CampaignType int

const (
	Standard CampaignType = iota
	Rush
	SuperSized
	Raid
)

// AllCampaignTypes returns every campaign type in evaluation order.
func AllCampaignTypes() []CampaignType {
	return []CampaignType{Rush, Raid, Standard, SuperSized}
}

func (t CampaignType) String() string {
	switch t {
	case Standard:
		return "Standard"
	case Rush:
		return "Rush"
	case SuperSized:
		return "SuperSized"
	case Raid:
		return "Raid"
	default:
		return "Unknown"
	}
}

// ParseCampaignType resolves a campaign type name case-insensitively.
func ParseCampaignType(s string) (CampaignType, error) {
	for _, t := range AllCampaignTypes() {
		if strings.EqualFold(t.String(), s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown campaign type %q", s)
}

func (t CampaignType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *CampaignType) UnmarshalText(b []byte) error {
	v, err := ParseCampaignType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Criterion is one term of the template score.
type Criterion string

const (
	CritStrength  Criterion = "strength"
	CritSpeed     Criterion = "speed"
	CritCost      Criterion = "cost"
	CritCostOf    Criterion = "costOf"
	CritCanGather Criterion = "canGather"
)

// Weight scores templates by Criterion; Resource qualifies costOf and canGather.
type Weight struct {
	Criterion Criterion          `mapstructure:"criterion"`
	Weight    float64            `mapstructure:"weight"`
	Resource  model.ResourceType `mapstructure:"resource"`
}

// Plan queue kinds. Each plan owns one queue per kind.
const (
	QueueUnits    = ""
	QueueChampion = "champion"
	QueueSiege    = "siege"
)

// CategorySpec configures one unit category of a campaign.
type CategorySpec struct {
	Name       string       `mapstructure:"name"`
	Tags       model.TagSet `mapstructure:"tags"`
	Queue      string       `mapstructure:"queue"`
	Priority   float64      `mapstructure:"priority"`
	MinSize    int          `mapstructure:"min_size"`
	TargetSize int          `mapstructure:"target_size"`
	BatchSize  int          `mapstructure:"batch_size"`
	Weights    []Weight     `mapstructure:"weights"`
}

// ArrivalReaction is the one-shot behavior applied when a roster arrives.
type ArrivalReaction string

const (
	// ArrivalRelease frees the roster to engage whatever it meets.
	ArrivalRelease ArrivalReaction = "release"
	// ArrivalRetarget points the roster at non-combatants near the target.
	ArrivalRetarget ArrivalReaction = "retarget"
)

// TargetPolicy names the default target finder of a campaign.
type TargetPolicy string

const (
	TargetBase     TargetPolicy = "base"
	TargetDropsite TargetPolicy = "dropsite"
)

// Profile holds the tuned constants of one campaign type.
type Profile struct {
	PrepBase            time.Duration `mapstructure:"prep_base"`
	PrepJitter          time.Duration `mapstructure:"prep_jitter"`
	PrepFloor           time.Duration `mapstructure:"prep_floor"`
	PopHeadroomCritical int           `mapstructure:"pop_headroom_critical"`
	RegroupEvery        time.Duration `mapstructure:"regroup_every"`
	LongCampaignAfter   time.Duration `mapstructure:"long_campaign_after"`
	MaxBacklog          int           `mapstructure:"max_backlog"`
	QueuePriority       float64       `mapstructure:"queue_priority"`

	CorridorWidths    []float64 `mapstructure:"corridor_widths"`
	PathSampling      float64   `mapstructure:"path_sampling"`
	PathMaxIterations int       `mapstructure:"path_max_iterations"`

	StuckEpsilonSq    float64       `mapstructure:"stuck_epsilon_sq"`
	StuckTurns        int           `mapstructure:"stuck_turns"`
	WaypointRadius    float64       `mapstructure:"waypoint_radius"`
	ArriveRadius      float64       `mapstructure:"arrive_radius"`
	AttackBurst       int           `mapstructure:"attack_burst"`
	AttackBurstWindow time.Duration `mapstructure:"attack_burst_window"`

	Arrival        ArrivalReaction `mapstructure:"arrival"`
	RetargetRadius float64         `mapstructure:"retarget_radius"`

	EngageBatch     int           `mapstructure:"engage_batch"`
	ReorderCooldown time.Duration `mapstructure:"reorder_cooldown"`
	EngageRadius    float64       `mapstructure:"engage_radius"`
	MaxRetargets    int           `mapstructure:"max_retargets"`

	Targets    TargetPolicy   `mapstructure:"targets"`
	Categories []CategorySpec `mapstructure:"categories"`
}

func strengthWeights() []Weight {
	return []Weight{
		{Criterion: CritStrength, Weight: 1},
		{Criterion: CritCost, Weight: -0.002},
		{Criterion: CritCostOf, Weight: -0.004, Resource: model.Metal},
	}
}

func baseProfile() Profile {
	return Profile{
		PrepBase:            300 * time.Second,
		PrepJitter:          60 * time.Second,
		PrepFloor:           90 * time.Second,
		PopHeadroomCritical: 10,
		RegroupEvery:        30 * time.Second,
		LongCampaignAfter:   20 * time.Minute,
		MaxBacklog:          2,
		QueuePriority:       100,
		CorridorWidths:      []float64{50, 30, 10},
		PathSampling:        1,
		PathMaxIterations:   2000,
		StuckEpsilonSq:      4,
		StuckTurns:          5,
		WaypointRadius:      12,
		ArriveRadius:        40,
		AttackBurst:         3,
		AttackBurstWindow:   10 * time.Second,
		Arrival:             ArrivalRelease,
		RetargetRadius:      60,
		EngageBatch:         10,
		ReorderCooldown:     3 * time.Second,
		EngageRadius:        60,
		MaxRetargets:        4,
		Targets:             TargetBase,
		Categories: []CategorySpec{
			{Name: "melee", Tags: model.Tags(model.Infantry, model.Melee), Priority: 1, MinSize: 6, TargetSize: 18, BatchSize: 5, Weights: strengthWeights()},
			{Name: "ranged", Tags: model.Tags(model.Infantry, model.Ranged), Priority: 1, MinSize: 4, TargetSize: 12, BatchSize: 5, Weights: strengthWeights()},
			{Name: "cavalry", Tags: model.Tags(model.Cavalry), Priority: 0.8, MinSize: 0, TargetSize: 6, BatchSize: 2, Weights: []Weight{
				{Criterion: CritStrength, Weight: 1},
				{Criterion: CritSpeed, Weight: 0.5},
			}},
			{Name: "siege", Tags: model.Tags(model.Siege), Queue: QueueSiege, Priority: 1, MinSize: 0, TargetSize: 2, BatchSize: 1, Weights: []Weight{
				{Criterion: CritStrength, Weight: 1},
				{Criterion: CritSpeed, Weight: 0.2},
			}},
		},
	}
}

// DefaultProfile returns the built-in tuning for t.
func DefaultProfile(t CampaignType) Profile {
	p := baseProfile()
	switch t {
	case Rush:
		p.PrepBase, p.PrepJitter, p.PrepFloor = 150*time.Second, 20*time.Second, 60*time.Second
		p.Arrival = ArrivalRetarget
		p.CorridorWidths = []float64{30, 10}
		p.Categories = []CategorySpec{
			{Name: "melee", Tags: model.Tags(model.Infantry, model.Melee), Priority: 1, MinSize: 6, TargetSize: 12, BatchSize: 3, Weights: []Weight{
				{Criterion: CritStrength, Weight: 1},
				{Criterion: CritCostOf, Weight: -0.01, Resource: model.Metal},
				{Criterion: CritCostOf, Weight: -0.01, Resource: model.Stone},
			}},
			{Name: "ranged", Tags: model.Tags(model.Infantry, model.Ranged), Priority: 1, MinSize: 2, TargetSize: 8, BatchSize: 3, Weights: strengthWeights()},
		}
	case Raid:
		p.PrepBase, p.PrepJitter, p.PrepFloor = 90*time.Second, 30*time.Second, 30*time.Second
		p.Arrival = ArrivalRetarget
		p.Targets = TargetDropsite
		p.MaxRetargets = 2
		p.Categories = []CategorySpec{
			{Name: "raiders", Tags: model.Tags(model.Cavalry), Priority: 1, MinSize: 4, TargetSize: 8, BatchSize: 2, Weights: []Weight{
				{Criterion: CritSpeed, Weight: 1},
				{Criterion: CritStrength, Weight: 0.5},
			}},
		}
	case SuperSized:
		p.PrepBase, p.PrepJitter, p.PrepFloor = 480*time.Second, 120*time.Second, 180*time.Second
		p.PopHeadroomCritical = 20
		p.EngageBatch = 15
		p.Categories = []CategorySpec{
			{Name: "melee", Tags: model.Tags(model.Infantry, model.Melee), Priority: 1, MinSize: 14, TargetSize: 40, BatchSize: 10, Weights: strengthWeights()},
			{Name: "ranged", Tags: model.Tags(model.Infantry, model.Ranged), Priority: 1, MinSize: 10, TargetSize: 30, BatchSize: 10, Weights: strengthWeights()},
			{Name: "cavalry", Tags: model.Tags(model.Cavalry), Priority: 0.8, MinSize: 4, TargetSize: 16, BatchSize: 5, Weights: strengthWeights()},
			{Name: "champions", Tags: model.Tags(model.Champion), Queue: QueueChampion, Priority: 0.6, MinSize: 0, TargetSize: 10, BatchSize: 5, Weights: strengthWeights()},
			{Name: "siege", Tags: model.Tags(model.Siege), Queue: QueueSiege, Priority: 1, MinSize: 2, TargetSize: 5, BatchSize: 1, Weights: []Weight{
				{Criterion: CritStrength, Weight: 1},
			}},
		}
	}
	return p
}

// Validate clamps every value to its usable range.
func (p *Profile) Validate() {
	p.PrepBase = clampDuration(p.PrepBase, 0, time.Hour)
	p.PrepJitter = clampDuration(p.PrepJitter, 0, time.Hour)
	p.PrepFloor = clampDuration(p.PrepFloor, 0, p.PrepBase+p.PrepJitter)
	p.PopHeadroomCritical = clampInt(p.PopHeadroomCritical, 0, 200)
	p.RegroupEvery = clampDuration(p.RegroupEvery, time.Second, 10*time.Minute)
	p.MaxBacklog = clampInt(p.MaxBacklog, 1, 20)
	if len(p.CorridorWidths) == 0 {
		p.CorridorWidths = []float64{2}
	}
	p.PathSampling = clamp(p.PathSampling, 0.1, 16)
	p.PathMaxIterations = clampInt(p.PathMaxIterations, 16, 1_000_000)
	p.StuckEpsilonSq = clamp(p.StuckEpsilonSq, 0, 1e6)
	p.StuckTurns = clampInt(p.StuckTurns, 1, 100)
	p.WaypointRadius = clamp(p.WaypointRadius, 1, 1e4)
	p.ArriveRadius = clamp(p.ArriveRadius, 1, 1e4)
	p.AttackBurst = clampInt(p.AttackBurst, 1, 100)
	if p.Arrival != ArrivalRetarget {
		p.Arrival = ArrivalRelease
	}
	if p.Targets != TargetDropsite {
		p.Targets = TargetBase
	}
	p.EngageBatch = clampInt(p.EngageBatch, 1, 500)
	p.ReorderCooldown = clampDuration(p.ReorderCooldown, 0, time.Minute)
	p.EngageRadius = clamp(p.EngageRadius, 1, 1e4)
	p.MaxRetargets = clampInt(p.MaxRetargets, 0, 100)
	for i := range p.Categories {
		c := &p.Categories[i]
		c.MinSize = clampInt(c.MinSize, 0, 500)
		c.TargetSize = clampInt(c.TargetSize, c.MinSize, 500)
		c.BatchSize = clampInt(c.BatchSize, 1, 100)
	}
}

// clampInt restricts v to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// clamp restricts v to [min, max].
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampDuration(v, min, max time.Duration) time.Duration {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
