package memberships

import (
	"github.com/hammer-mt/FireFlask/pkg/db/models"
)

type teamMemberRow struct {
	models.TeamMembership
	Name  string `gorm:"column:member_name"`
	Email string `gorm:"column:member_email"`
}

type userTeamRow struct {
	models.TeamMembership
	TeamName      string  `gorm:"column:team_name"`
	FacebookToken *string `gorm:"column:team_facebook_token"`
}

func teamMemberFromRow(row teamMemberRow) TeamMemberDTO {
	return TeamMemberDTO{
		MembershipID: row.ID,
		TeamID:       row.TeamID,
		UserID:       row.UserID,
		Name:         row.Name,
		Email:        row.Email,
		Role:         row.Role,
		CreatedAt:    row.CreatedAt,
	}
}

func teamMembersFromRows(rows []teamMemberRow) []TeamMemberDTO {
	out := make([]TeamMemberDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, teamMemberFromRow(row))
	}
	return out
}

// userTeamFromRow never carries the token itself, only whether one is stored.
func userTeamFromRow(row userTeamRow) UserTeamDTO {
	return UserTeamDTO{
		MembershipID:      row.ID,
		TeamID:            row.TeamID,
		TeamName:          row.TeamName,
		Role:              row.Role,
		FacebookConnected: row.FacebookToken != nil && *row.FacebookToken != "",
	}
}

func userTeamsFromRows(rows []userTeamRow) []UserTeamDTO {
	out := make([]UserTeamDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, userTeamFromRow(row))
	}
	return out
}
