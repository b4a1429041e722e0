package boardgames

import (
	"strconv"

	"boardgamestats/pkg/datasetapi"
)

type question struct {
	number    int
	nav       string
	heading   string
	narrative string
	xLabel    string
	yLabel    string
}

var (
	question1 = question{
		number:    1,
		nav:       "Frage 1: Verteilungen der Bewertungen",
		heading:   "Frage 1: wie sind die durchschnittlichen Bewertungen der Spiele verteilt?",
		narrative: "Hier sehen Sie die Verteilung der durchschnittlichen Bewertungen für alle Spiele. Man sieht, dass die am häufigsten vorkommende Bewertung ca. 6,9 ist.",
		xLabel:    "Durchschnittliche Bewertung",
		yLabel:    "Häufigkeit",
	}
	question2 = question{
		number:    2,
		nav:       "Frage 2: Durchschnittliche Bewertung für ältere und neuere Spiele",
		heading:   "Frage 2: ist die durchschnittliche Bewertung für ältere oder neuere Spiele besser?",
		narrative: "Wir können feststellen, dass neuere Spiele eine bessere durchschnittliche Bewertung haben als ältere, selbst wenn man die Grenze von alt und neu verschiebt. Das heißt, dass besonders sehr moderne Spiele gute Bewertungen haben.",
		xLabel:    "Veröffentlichungsjahr",
		yLabel:    "Durchschnittliche Bewertung",
	}
	question3 = question{
		number:    3,
		nav:       "Frage 3: Durchschnittliche Bewertung für Spielkategorien nach Spieleranzahl",
		heading:   "Frage 3: gibt es Spielekategorien, die klar für eine bestimmte Spielerzahl geeignet sind?",
		narrative: "In dieser Betrachtung wird die Kategorie \"misc\" außenvorgelassen. Man erkennt selten einen großen Unterschied zwischen den verschiedenen Spieleranzahlen. Einige Daten fehlen für bestimmte Spielerzahlen.",
		xLabel:    "Spieleranzahl",
		yLabel:    "Höchste durchschnittliche Bewertung",
	}
	question4 = question{
		number:    4,
		nav:       "Frage 4: Verteilung der Bewertungen im Bezug auf die empfohlene Altersgruppe",
		heading:   "Frage 4: Wie ist die Verteilung der Spielbewertungen über die empfohlenen Altersgruppen?",
		narrative: "Man erkennt von 2 bis 14 Jahren einen leichte Steigerung der durchschnittlichen Bewertungen. Wie man dies interpretieren möchte, bleibt offen.",
		xLabel:    "Empfohlene Altersgruppe",
		yLabel:    "Durchschnittliche Bewertung",
	}
	question5 = question{
		number:    5,
		nav:       "Frage 5: Durchschnittliche Spielzeit nach Jahren",
		heading:   "Frage 5: Gibt es einen Trend in Bezug auf die durchschnittliche Spielzeit über die Veröffentlichungsjahre?",
		narrative: "Man kann feststellen, dass es einen Trend gibt, welcher besagt, dass mehr gespielt wird. Es gab aber einen Ausreißer im Jahr -2200. In diesem wurde wohl sehr viel gespielt.",
		xLabel:    "Jahre",
		yLabel:    "Durchschnittliche Spielzeit",
	}
)

// Narrative text belongs to the section, so only the first template of a
// section (order "1") carries heading and narrative.
func questionMetadata(q question, order, chart, x, y, series string) datasetapi.Metadata {
	ann := map[string]string{
		datasetapi.AnnotationSection:   strconv.Itoa(q.number),
		datasetapi.AnnotationOrder:     order,
		datasetapi.AnnotationAnchor:    "frage-" + strconv.Itoa(q.number),
		datasetapi.AnnotationChartKind: chart,
		datasetapi.AnnotationChartX:    x,
		datasetapi.AnnotationChartY:    y,
		datasetapi.AnnotationXLabel:    q.xLabel,
		datasetapi.AnnotationYLabel:    q.yLabel,
	}
	if order == "1" {
		ann[datasetapi.AnnotationNavLabel] = q.nav
		ann[datasetapi.AnnotationHeading] = q.heading
		ann[datasetapi.AnnotationNarrative] = q.narrative
	}
	if series != "" {
		ann[datasetapi.AnnotationChartSeries] = series
	}
	return datasetapi.Metadata{
		Source:        "boardgamegeek",
		Documentation: q.heading,
		Tags:          []string{"frage-" + strconv.Itoa(q.number), chart},
		Annotations:   ann,
	}
}
