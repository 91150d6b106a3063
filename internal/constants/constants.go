package constants

import "time"

var CacheTTL = struct {
	ChannelSearch time.Duration
	InFlightLock  time.Duration
}{
	ChannelSearch: 24 * time.Hour,  // name -> channel id discovery
	InFlightLock:  5 * time.Minute, // per-slug pipeline lock
}

var RedisConfig = struct {
	ReadyTimeout time.Duration
	KeyPrefix    string
}{
	ReadyTimeout: 5 * time.Second,
	KeyPrefix:    "creators:",
}

var SourceConfig = struct {
	AdapterTimeout     time.Duration
	RequestsPerSecond  float64
	Burst              int
	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
	BreakerFailures    uint32
	UserAgent          string
}{
	AdapterTimeout:     8 * time.Second,
	RequestsPerSecond:  2,
	Burst:              2,
	BreakerMaxRequests: 1,
	BreakerInterval:    time.Minute,
	BreakerTimeout:     30 * time.Second,
	BreakerFailures:    3,
	UserAgent:          "Mozilla/5.0 (compatible; CreatorDirectoryBot/1.0)",
}

var YouTubeQuota = struct {
	DailyLimit      int
	SafetyMargin    int
	SearchCost      int
	ListCost        int
	RecentVideos    int64
	PopularVideos   int64
	MentionVideos   int64
	ChannelSearches int64
}{
	DailyLimit:      10000,
	SafetyMargin:    1000,
	SearchCost:      100, // search.list
	ListCost:        1,   // channels.list, playlistItems.list
	RecentVideos:    5,
	PopularVideos:   5,
	MentionVideos:   8,
	ChannelSearches: 5,
}

var LinkProbe = struct {
	Timeout     time.Duration
	Concurrency int
	MaxLinks    int
}{
	Timeout:     3 * time.Second,
	Concurrency: 4,
	MaxLinks:    20,
}

// Scoring weights. The bands and the save gate are the contract; the point
// values may be re-tuned as long as adding data never lowers the score.
var Scoring = struct {
	Base                int
	Name                int
	Bio                 int
	FirstCategory       int
	ExtraCategory       int
	MaxExtraCategories  int
	ExternalLink        int
	Image               int
	PerCorroboration    int
	MaxCorroboration    int
	NoSourcesPenalty    int
	PerConflictPenalty  int
	MaxConflictPenalty  int
	MediumThreshold     int
	HighThreshold       int
	MinConfidenceToSave int
}{
	Base:                10,
	Name:                10,
	Bio:                 15,
	FirstCategory:       20,
	ExtraCategory:       5,
	MaxExtraCategories:  3,
	ExternalLink:        10,
	Image:               5,
	PerCorroboration:    5,
	MaxCorroboration:    15,
	NoSourcesPenalty:    30,
	PerConflictPenalty:  5,
	MaxConflictPenalty:  15,
	MediumThreshold:     40,
	HighThreshold:       70,
	MinConfidenceToSave: 40,
}

var Merge = struct {
	TrivialBioRunes   int
	ShortBioRunes     int
	NumericTolerance  float64
	HistoricalCutoff  int
	MaxBooks          int
	MaxPodcasts       int
	MaxMentionVideos  int
	MinRelevantTokens int
}{
	TrivialBioRunes:   60,
	ShortBioRunes:     300,
	NumericTolerance:  0.05,
	HistoricalCutoff:  1900,
	MaxBooks:          20,
	MaxPodcasts:       5,
	MaxMentionVideos:  8,
	MinRelevantTokens: 2,
}

var Refresh = struct {
	HighConfidenceInterval time.Duration
	DefaultInterval        time.Duration
	PriorityInterval       time.Duration
	RetryInterval          time.Duration
	SchedulerInterval      time.Duration
	SchedulerBatch         int
}{
	HighConfidenceInterval: 30 * 24 * time.Hour,
	DefaultInterval:        14 * 24 * time.Hour,
	PriorityInterval:       7 * 24 * time.Hour,
	RetryInterval:          3 * 24 * time.Hour, // after a skipped or failed refresh
	SchedulerInterval:      6 * time.Hour,
	SchedulerBatch:         10,
}

var PipelineConfig = struct {
	InterItemDelay time.Duration
	SingleTimeout  time.Duration
	BatchTimeout   time.Duration
	ListTimeout    time.Duration
	MaxBatchSize   int
}{
	InterItemDelay: 1 * time.Second,
	SingleTimeout:  60 * time.Second,
	BatchTimeout:   10 * time.Minute,
	ListTimeout:    15 * time.Second,
	MaxBatchSize:   20,
}

var Database = struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}{
	MaxOpenConns:    25,
	MaxIdleConns:    5,
	ConnMaxLifetime: 5 * time.Minute,
	ConnectTimeout:  5 * time.Second,
}
