package app

import (
	"github.com/example/ctfcord/internal/ports/primary"
	"github.com/example/ctfcord/internal/ports/secondary"
)

func toCtf(record *secondary.CtfRecord) *primary.Ctf {
	return &primary.Ctf{
		ID:                record.ID,
		GuildRef:          record.GuildRef,
		EventID:           record.EventID,
		TeamName:          record.TeamName,
		Title:             record.Title,
		Description:       record.Description,
		URL:               record.URL,
		LogoURL:           record.LogoURL,
		InviteURL:         record.InviteURL,
		ChannelRef:        record.ChannelRef,
		JoinMarkerRef:     record.JoinMarkerRef,
		ScheduledEventRef: record.ScheduledEventRef,
		Phase:             primary.Phase(record.Phase),
		StartAt:           record.StartAt,
		FinishAt:          record.FinishAt,
	}
}

func toChallenge(record *secondary.ChallengeRecord) *primary.Challenge {
	return &primary.Challenge{
		ID:        record.ID,
		CtfID:     record.CtfID,
		Name:      record.Name,
		Category:  record.Category,
		ThreadRef: record.ThreadRef,
		Points:    record.Points,
		Solved:    record.Solved,
		Flag:      record.Flag,
		WorkingOn: record.Workers,
		SolvedBy:  record.Solvers,
	}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
