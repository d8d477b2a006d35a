package dashboard

// Section IDs, used in routes and tab anchors.
const (
	SectionGiftFrequency   = "gift-frequency"
	SectionTimeline        = "last-gift-timeline"
	SectionDonations       = "donations"
	SectionAttendance      = "event-attendance"
	SectionCultivation     = "cultivation"
	SectionRecommendations = "recommendations"
)

// Section is one of the six selectable groups.
type Section struct {
	ID      string
	Tab     string
	Heading string
	// Chart is the chart view shown in the section, if any.
	Chart string
}

var Sections = []Section{
	{ID: SectionGiftFrequency, Tab: "Gift Frequency", Heading: "Gift Frequency Distribution", Chart: ChartGiftFrequency},
	{ID: SectionTimeline, Tab: "Last Gift Timeline", Heading: "Timeline of Last Gift Dates", Chart: ChartTimeline},
	{ID: SectionDonations, Tab: "Donations", Heading: "Total Donations by Year", Chart: ChartYearlyTotals},
	{ID: SectionAttendance, Tab: "Event Attendance", Heading: "Event Attendance Representation", Chart: ChartAttendance},
	{ID: SectionCultivation, Tab: "Donor Cultivation Analysis", Heading: "Donor Cultivation & Giving Trends"},
	{ID: SectionRecommendations, Tab: "Actionable Insights and Recommendations", Heading: "Actionable Insights & Recommendations"},
}

// SectionByID looks up a section.
func SectionByID(id string) (Section, bool) {
	for _, s := range Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}
