package testutil

import (
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5/plumbing/transport/client"
	"github.com/go-git/go-git/v5/plumbing/transport/server"
)

// Serve installs an in-process handler for path-style ("file") remotes
// rooted at fs, replacing go-git's default handler that shells out to git
// binaries. It returns a function that restores the previous handler.
//
// The handler serves git directories, so FixtureRepo.Remote addresses work
// as-is:
//
//	restore := testutil.Serve(fs)
//	defer restore()
func Serve(fs billy.Filesystem) func() {
	prev := client.Protocols["file"]
	client.InstallProtocol("file", server.NewClient(server.NewFilesystemLoader(fs)))
	return func() {
		client.InstallProtocol("file", prev)
	}
}
