package main

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/exam"
	"github.com/trezcool/academia/core/user"
)

// importExam imports the questions found in the file at `path`, authored by `author`.
func (cli *commandLine) importExam(ctx context.Context, path, author, trailID string) (exam.ImportResult, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return exam.ImportResult{}, errors.Wrap(err, "reading exam file")
	}
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: core.CleanString(author, true /* lower */)})
	if err != nil {
		return exam.ImportResult{}, err
	}
	return cli.examSvc.Import(ctx, usr, exam.ImportRequest{Text: string(text), TrailID: core.CleanString(trailID)})
}
