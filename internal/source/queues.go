package source

import (
	"fmt"

	"lol-tracker/internal/domain"
)

var queueNames = map[int]string{
	0:    "CUSTOM",
	400:  "NORMAL_DRAFT",
	420:  domain.QueueRankedSolo,
	430:  "NORMAL_BLIND",
	440:  domain.QueueRankedFlex,
	450:  "ARAM",
	490:  "QUICKPLAY",
	700:  "CLASH",
	900:  "URF",
	1700: "ARENA",
}

// QueueName classifies a queue config id, falling back to the game mode.
func QueueName(queueID int, gameMode string) string {
	if name, ok := queueNames[queueID]; ok {
		return name
	}
	if gameMode != "" {
		return gameMode
	}
	return fmt.Sprintf("QUEUE_%d", queueID)
}

var queueLabels = map[string]string{
	"CUSTOM":               "Custom",
	"NORMAL_DRAFT":         "Normal Draft",
	domain.QueueRankedSolo: "Ranked Solo/Duo",
	"NORMAL_BLIND":         "Normal Blind",
	domain.QueueRankedFlex: "Ranked Flex",
	"ARAM":                 "ARAM",
	"QUICKPLAY":            "Quickplay",
	"CLASH":                "Clash",
	"URF":                  "URF",
	"ARENA":                "Arena",
}

// QueueLabel is the display form of a queue classifier.
func QueueLabel(queue string) string {
	if label, ok := queueLabels[queue]; ok {
		return label
	}
	return queue
}
