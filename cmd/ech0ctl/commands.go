package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	service "github.com/okian/ech0client/internal/app"
	"github.com/okian/ech0client/internal/domain/model"
)

var errUsage = errors.New("usage")

const (
	defaultPage     = 1
	defaultPageSize = 20
)

// dispatch runs one subcommand and prints its envelope as indented JSON.
// A nil envelope is printed as null; Put has already raised a toast for it.
func dispatch(ctx context.Context, svc *service.Service, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	name, rest := args[0], args[1:]

	var (
		res any
		err error
	)
	switch name {
	case "login":
		if len(rest) != 2 {
			return fmt.Errorf("%w: login <username> <password>", errUsage)
		}
		res, err = svc.Login(ctx, model.UserToLogin{Username: rest[0], Password: rest[1]})
	case "register":
		if len(rest) != 2 {
			return fmt.Errorf("%w: register <username> <password>", errUsage)
		}
		res, err = svc.Register(ctx, model.UserToRegister{Username: rest[0], Password: rest[1]})
	case "logout":
		svc.Logout(ctx)
		return nil
	case "me":
		res, err = svc.Me(ctx)
	case "status":
		res, err = svc.Status(ctx)
	case "messages":
		q, perr := pageQuery(rest)
		if perr != nil {
			return perr
		}
		res, err = svc.Messages(ctx, q)
	case "message", "delete", "pin":
		id, perr := messageID(name, rest)
		if perr != nil {
			return perr
		}
		switch name {
		case "message":
			res, err = svc.Message(ctx, id)
		case "delete":
			res, err = svc.DeleteMessage(ctx, id)
		default:
			res, err = svc.TogglePin(ctx, id)
		}
	case "post":
		in, perr := messageToSave(rest)
		if perr != nil {
			return perr
		}
		res, err = svc.CreateMessage(ctx, in)
	case "tags":
		res, err = svc.Tags(ctx)
	case "bytag":
		tag, q, perr := tagQuery(rest)
		if perr != nil {
			return perr
		}
		res, err = svc.MessagesByTag(ctx, tag, q)
	case "images":
		res, err = svc.Images(ctx)
	case "upload":
		if len(rest) != 1 {
			return fmt.Errorf("%w: upload <file>", errUsage)
		}
		data, rerr := os.ReadFile(rest[0])
		if rerr != nil {
			return fmt.Errorf("read %s: %w", rest[0], rerr)
		}
		res, err = svc.UploadImage(ctx, filepath.Base(rest[0]), data)
	case "rename":
		if len(rest) != 1 {
			return fmt.Errorf("%w: rename <username>", errUsage)
		}
		res, err = svc.UpdateUsername(ctx, rest[0])
	case "passwd":
		if len(rest) != 1 {
			return fmt.Errorf("%w: passwd <new-password>", errUsage)
		}
		u, ok := svc.Session().User()
		if !ok {
			return errors.New("passwd: not logged in")
		}
		res, err = svc.ChangePassword(ctx, model.UserToLogin{Username: u.Username, Password: rest[0]})
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func pageQuery(args []string) (model.PageQuery, error) {
	q := model.PageQuery{Page: defaultPage, PageSize: defaultPageSize}
	if len(args) > 2 {
		return q, fmt.Errorf("%w: messages [page] [pageSize]", errUsage)
	}
	for i, dst := range []*int{&q.Page, &q.PageSize} {
		if i >= len(args) {
			break
		}
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return q, fmt.Errorf("%w: messages [page] [pageSize]: %w", errUsage, err)
		}
		*dst = n
	}
	return q, nil
}

func messageID(name string, args []string) (uint, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: %s <id>", errUsage, name)
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s <id>: %w", errUsage, name, err)
	}
	return uint(id), nil
}

func messageToSave(args []string) (model.MessageToSave, error) {
	fs := flag.NewFlagSet("post", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	private := fs.Bool("private", false, "Only visible to the author and the admin")
	image := fs.String("image", "", "Image path returned by upload")
	notifyFlag := fs.Bool("notify", false, "Ask the backend to push the message to its notifiers")
	if err := fs.Parse(args); err != nil {
		return model.MessageToSave{}, fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() != 1 {
		return model.MessageToSave{}, fmt.Errorf("%w: post [-private] [-image path] <content>", errUsage)
	}
	return model.MessageToSave{
		Content:  fs.Arg(0),
		ImageURL: *image,
		Private:  *private,
		Notify:   *notifyFlag,
	}, nil
}

func tagQuery(args []string) (string, model.TagQuery, error) {
	fs := flag.NewFlagSet("bytag", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	author := fs.Uint("author", 0, "Only messages by this user id")
	user := fs.String("user", "", "Only messages by this username")
	if err := fs.Parse(args); err != nil {
		return "", model.TagQuery{}, fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() != 1 {
		return "", model.TagQuery{}, fmt.Errorf("%w: bytag [-author id] [-user name] <tag>", errUsage)
	}
	return fs.Arg(0), model.TagQuery{AuthorID: *author, Username: *user}, nil
}
