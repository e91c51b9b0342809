package cli

import (
	"fmt"
	"strconv"
	"strings"

	service "github.com/okian/rummy/internal/app"
	model "github.com/okian/rummy/internal/domain/model"
	"github.com/okian/rummy/internal/domain/types"
)

// actionWords maps the short forms accepted on the command line.
var actionWords = map[string]model.ActionType{
	"first":       model.ActionFirstDrop,
	"first-drop":  model.ActionFirstDrop,
	"middle":      model.ActionMiddleDrop,
	"middle-drop": model.ActionMiddleDrop,
	"full":        model.ActionFullCount,
	"full-count":  model.ActionFullCount,
}

// splitAssignment splits "name=value" at the last '=' so names may contain one.
func splitAssignment(arg string) (string, string, error) {
	i := strings.LastIndex(arg, "=")
	if i <= 0 || i == len(arg)-1 {
		return "", "", NewExitError(ExitCommandError, fmt.Sprintf("expected PLAYER=SCORE, got %q", arg))
	}
	return strings.TrimSpace(arg[:i]), strings.TrimSpace(arg[i+1:]), nil
}

// parseEntries turns PLAYER=SCORE|first|middle|full arguments into round entries.
func parseEntries(svc *service.Service, args []string) ([]types.ScoreEntry, error) {
	entries := make([]types.ScoreEntry, 0, len(args))
	for _, arg := range args {
		ref, value, err := splitAssignment(arg)
		if err != nil {
			return nil, err
		}
		p, err := svc.FindPlayer(ref)
		if err != nil {
			return nil, err
		}
		if action, ok := actionWords[strings.ToLower(value)]; ok {
			entries = append(entries, types.Drop(p.ID, action))
			continue
		}
		if action := model.ActionType(strings.ToUpper(value)); action.Valid() && action != model.ActionNormal {
			entries = append(entries, types.Drop(p.ID, action))
			continue
		}
		score, err := strconv.Atoi(value)
		if err != nil {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("score for %s must be a number or first|middle|full, got %q", ref, value))
		}
		entries = append(entries, types.Points(p.ID, score))
	}
	return entries, nil
}

// parseScores turns PLAYER=SCORE arguments into a plain score map.
func parseScores(svc *service.Service, args []string) (map[string]int, error) {
	scores := make(map[string]int, len(args))
	for _, arg := range args {
		ref, value, err := splitAssignment(arg)
		if err != nil {
			return nil, err
		}
		p, err := svc.FindPlayer(ref)
		if err != nil {
			return nil, err
		}
		score, err := strconv.Atoi(value)
		if err != nil {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("score for %s must be a number, got %q", ref, value))
		}
		if _, dup := scores[p.ID]; dup {
			return nil, model.Validationf("player scored twice").With("player", p.ID)
		}
		scores[p.ID] = score
	}
	return scores, nil
}

// savedPlayerID resolves a roster entry by id or name.
func savedPlayerID(svc *service.Service, ref string) (string, error) {
	for _, p := range svc.SavedPlayers() {
		if p.ID == ref {
			return p.ID, nil
		}
	}
	p, err := svc.LookupSavedPlayer(ref)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}
