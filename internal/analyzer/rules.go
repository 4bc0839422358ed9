package analyzer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jacobarthurs/bbhealth/internal/version"
)

const (
	MinRecommendedProduct = "6.10.0"
	RefAdvCacheRemovedIn  = "7.3.0"

	MinSupportedGit   = "2.11"
	MinRecommendedGit = "2.20"

	MinJava8Update      = "1.8.0_65"
	LastJava8Update     = "1.8.0_9999"
	FirstFixedJava11    = "11.0.8"
	FirstUnsupportedJVM = "12"

	HeapDumpFlag     = "-XX:+HeapDumpOnOutOfMemoryError"
	HeapDumpPathFlag = "-XX:HeapDumpPath="
)

var (
	ltsLink = &Link{
		Title: "Long Term Support (LTS) Release",
		URL:   "https://confluence.atlassian.com/enterprise/atlassian-enterprise-releases-948227420.html",
	}
	platformsLink = &Link{
		Title: "Supported Platforms",
		URL:   "https://confluence.atlassian.com/bitbucketserver076/supported-platforms-1026535721.html",
	}
	javaPlatformsLink = &Link{
		Title: "Supported Platforms",
		URL:   "https://confluence.atlassian.com/bitbucketserver076/supported-platforms-1026535721.html#Supportedplatforms-javaJava",
	}
	jdkBugLink = &Link{
		Title: "JDK-8241054",
		URL:   "https://bugs.openjdk.java.net/browse/JDK-8241054",
	}
	scalingCILink = &Link{
		Title: "Scaling Bitbucket for CI performance",
		URL:   "https://confluence.atlassian.com/bitbucketserver/scaling-bitbucket-server-for-continuous-integration-performance-776640088.html",
	}
	cachingLink = &Link{
		Title: "no longer used",
		URL:   "https://confluence.atlassian.com/bitbucketserver/scaling-bitbucket-server-776640073.html#ScalingBitbucketServer-Caching",
	}
)

var ProductLadder = Ladder{
	Steps: []Step{
		{
			Match:    Below(MinRecommendedProduct),
			Severity: Warning,
			Message:  "%s While your version is supported, you should think about upgrading.",
			Details:  []string{"We recommend our Long Term Support (LTS) Release."},
			Link:     ltsLink,
		},
	},
	Else: Step{Severity: Good, Message: "%s Version is Good"},
}

var GitLadder = Ladder{
	Steps: []Step{
		{
			Match:    Below(MinSupportedGit),
			Severity: Bad,
			Message:  "Unsupported Version: %s",
			Details: []string{
				"We recommend an upgrade to a later version 2.20+",
				"All Recommendations are based on the latest Bitbucket LTS Release.",
			},
			Link: platformsLink,
		},
		{
			Match:    Below(MinRecommendedGit),
			Severity: Warning,
			Message:  "While you meet the minimum requirements: %s",
			Details: []string{
				"We recommend an upgrade to a later version 2.20+",
				"All Recommendations are based on the latest Bitbucket LTS Release.",
			},
			Link: platformsLink,
		},
	},
	Else: Step{Severity: Good, Message: "Your Git version is good: %s"},
}

var (
	java18 = version.MustParse("1.8")

	javaUnsupported = Step{
		Severity: Bad,
		Message:  "Your Java version %s is not supported!",
		Link:     javaPlatformsLink,
	}
)

// JavaLadder encodes two supported bands, the 1.8 update line from
// 1.8.0_65 and 11.0.8 up to 12, separated by unsupported gaps.
var JavaLadder = Ladder{
	Steps: []Step{
		withMatch(javaUnsupported, func(v version.Version) bool {
			return v.LessOrEqual(java18) && !v.HasUpdate
		}),
		withMatch(javaUnsupported, Below(MinJava8Update)),
		{
			Match:    Below(LastJava8Update),
			Severity: Good,
			Message:  "Your Java version %s is good.",
			Details:  []string{"Please note: Bitbucket Server 8.0 will raise the minimum supported Java version to 11.0.8."},
		},
		withMatch(javaUnsupported, Below("11")),
		{
			Match:    Below(FirstFixedJava11),
			Severity: Warning,
			Message:  "%s Java versions 11.0.0 - 11.0.7 are not recommended due to Java bug JDK-8241054.",
			Details:  []string{"We recommend Java version 11.0.8 (or later)."},
			Link:     jdkBugLink,
		},
		{
			Match:    Below(FirstUnsupportedJVM),
			Severity: Good,
			Message:  "Your Java version %s is good.",
		},
	},
	Else: javaUnsupported,
}

func withMatch(s Step, match func(version.Version) bool) Step {
	s.Match = match
	return s
}

func CheckProductVersion(v string) Finding {
	var raw *string
	if v != "" {
		raw = &v
	}
	return ProductLadder.Assess("Product Version", raw)
}

func CheckGitVersion(v *string) Finding {
	return GitLadder.Assess("GIT Version", v)
}

func CheckJavaVersion(v *string) Finding {
	return JavaLadder.Assess("Java Version", v)
}

func CheckHTTPCache(enabled *bool) Finding {
	return checkSCMCache("HTTP cache", "HTTP", enabled)
}

func CheckSSHCache(enabled *bool) Finding {
	return checkSCMCache("SSH cache", "SSH", enabled)
}

func checkSCMCache(label, protocol string, enabled *bool) Finding {
	switch {
	case enabled == nil:
		return Finding{
			Label:    label,
			Severity: NeedsInfo,
			Message:  fmt.Sprintf("SCM cache setting for %s not found in the support zip", protocol),
		}
	case *enabled:
		return Finding{
			Label:    label,
			Severity: Good,
			Message:  fmt.Sprintf("SCM cache for %s is Enabled", protocol),
		}
	default:
		return Finding{
			Label:    label,
			Severity: Warning,
			Message:  fmt.Sprintf("SCM cache for %s is Disabled", protocol),
			Details:  scmCacheAdvice(),
			Link:     scalingCILink,
		}
	}
}

func scmCacheAdvice() []string {
	return []string{
		"Recommendation: If possible, we recommend enabling SCM for better performance.",
		"There are some configurations in which it should be disabled.",
	}
}

// CheckRefAdvertisementCache only assesses the flag on products older than
// 7.3.0; newer products ignore the setting.
func CheckRefAdvertisementCache(product string, enabled *bool) Finding {
	const label = "Ref advertisement cache"

	v, err := version.Parse(product)
	if err != nil {
		return Finding{
			Label:    label,
			Severity: NeedsInfo,
			Message:  "Unable to determine whether the ref advertisement cache applies to this product version",
		}
	}

	if !v.Less(version.MustParse(RefAdvCacheRemovedIn)) {
		return Finding{
			Label:    label,
			Severity: Good,
			Message:  fmt.Sprintf("SCM cache for ref advertisement is no longer used in Bitbucket version %s.", product),
			Link:     cachingLink,
		}
	}

	switch {
	case enabled == nil:
		return Finding{
			Label:    label,
			Severity: NeedsInfo,
			Message:  "SCM cache setting for ref advertisement not found in the support zip",
		}
	case *enabled:
		return Finding{
			Label:    label,
			Severity: Good,
			Message:  "SCM cache for ref advertisement is Enabled",
		}
	default:
		return Finding{
			Label:    label,
			Severity: Warning,
			Message:  "SCM cache for ref advertisement is Disabled",
			Details: append(scmCacheAdvice(),
				"Please note: Ref advertisement cache is no longer applicable to Bitbucket versions 7.4 and later."),
			Link: scalingCILink,
		}
	}
}

// HeapFlags returns the -Xms and -Xmx tokens of a JVM argument string.
func HeapFlags(vmArgs string) (xms, xmx []string) {
	for _, tok := range strings.Fields(vmArgs) {
		switch {
		case strings.HasPrefix(tok, "-Xms"):
			xms = append(xms, tok)
		case strings.HasPrefix(tok, "-Xmx"):
			xmx = append(xmx, tok)
		}
	}
	return xms, xmx
}

// CheckHeapSettings is total over every count of -Xms/-Xmx: exactly one of
// each is required to judge, anything else cannot be determined.
func CheckHeapSettings(vmArgs *string) Finding {
	const label = "Java HEAP"
	const advice = "We recommend setting -Xms and -Xmx to the same value."

	if vmArgs == nil {
		return Finding{
			Label:    label,
			Severity: NeedsInfo,
			Message:  "JVM arguments not found in the support zip",
		}
	}

	xms, xmx := HeapFlags(*vmArgs)
	found := strings.Join(append(append([]string{}, xms...), xmx...), ",")

	if len(xms) != 1 || len(xmx) != 1 {
		f := Finding{
			Label:    label,
			Severity: Bad,
			Message:  fmt.Sprintf("Heap Settings: cannot determine heap settings (%d -Xms, %d -Xmx)", len(xms), len(xmx)),
			Details:  []string{advice},
		}
		if found != "" {
			f.Details = append(f.Details, found)
		}
		return f
	}

	if sameHeapSize(strings.TrimPrefix(xms[0], "-Xms"), strings.TrimPrefix(xmx[0], "-Xmx")) {
		return Finding{
			Label:    label,
			Severity: Good,
			Message:  "Heap Settings",
			Details:  []string{found},
		}
	}

	return Finding{
		Label:    label,
		Severity: Warning,
		Message:  "Heap Settings: " + found,
		Details:  []string{advice},
	}
}

// CheckHeapDump expects the JVM to write a heap dump on OutOfMemoryError to
// an explicit path.
func CheckHeapDump(vmArgs *string) Finding {
	const label = "Heap dump on OOM"

	if vmArgs == nil {
		return Finding{
			Label:    label,
			Severity: NeedsInfo,
			Message:  "JVM arguments not found in the support zip",
		}
	}

	var hasDump, hasPath bool
	for _, tok := range strings.Fields(*vmArgs) {
		switch {
		case tok == HeapDumpFlag:
			hasDump = true
		case strings.HasPrefix(tok, HeapDumpPathFlag) && len(tok) > len(HeapDumpPathFlag):
			hasPath = true
		}
	}

	var missing []string
	if !hasDump {
		missing = append(missing, HeapDumpFlag)
	}
	if !hasPath {
		missing = append(missing, HeapDumpPathFlag)
	}

	if len(missing) == 0 {
		return Finding{
			Label:    label,
			Severity: Good,
			Message:  "Heap dumps are written on OutOfMemoryError",
		}
	}

	return Finding{
		Label:    label,
		Severity: Warning,
		Message:  "Missing JVM arguments: " + strings.Join(missing, ", "),
		Details:  []string{"Without a heap dump, OutOfMemoryError incidents cannot be analysed."},
	}
}

func sameHeapSize(a, b string) bool {
	sa, okA := ParseHeapSize(a)
	sb, okB := ParseHeapSize(b)
	if okA && okB {
		return sa == sb
	}
	return strings.EqualFold(a, b)
}

// ParseHeapSize converts a JVM size such as "4g" or "4096m" into bytes.
func ParseHeapSize(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}

	multiplier := int64(1)
	switch s[len(s)-1] {
	case 'k', 'K':
		multiplier = 1 << 10
	case 'm', 'M':
		multiplier = 1 << 20
	case 'g', 'G':
		multiplier = 1 << 30
	case 't', 'T':
		multiplier = 1 << 40
	}
	if multiplier != 1 {
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 || n > math.MaxInt64/multiplier {
		return 0, false
	}
	return n * multiplier, true
}
