package report

// Kind selects the wording of an error report.
type Kind string

const (
	KindUserNotFound   Kind = "user_not_found"
	KindAPIError       Kind = "api_error"
	KindAnalysisFailed Kind = "analysis_failed"
	KindGeneral        Kind = "general"
)

// ErrorReport is posted instead of a trust report when analysis cannot finish.
// Unknown kinds get the general wording. An empty username is worded as
// "this account".
func ErrorReport(username string, kind Kind) string {
	who := "@" + username
	if username == "" {
		who = "this account"
	}
	var msg string
	switch kind {
	case KindUserNotFound:
		if username == "" {
			msg = "🔍 RUGGUARD: Account not found or protected."
		} else {
			msg = "🔍 RUGGUARD: User " + who + " not found or protected."
		}
	case KindAPIError:
		msg = "🔍 RUGGUARD: API error analyzing " + who + ". Try again later."
	case KindAnalysisFailed:
		msg = "🔍 RUGGUARD: Analysis failed for " + who + "."
	default:
		msg = "🔍 RUGGUARD: Error analyzing " + who + ". Please try again."
	}
	return Truncate(msg+" #RUGGUARD", MaxLength)
}

// RateLimitReport is posted when the API budget is exhausted.
func RateLimitReport() string {
	return "🔍 RUGGUARD: Rate limit reached. Please try again in 15 minutes. #RUGGUARD"
}
