// Command bridge compiles a DSL source file and publishes it to a registry
// store, the deploy-time counterpart to bridge-server's run-time loading.
// Subcommands mirror the teacher's cmd/ convention of one small main() per
// concern rather than a single multi-command CLI framework — no cobra or
// urfave/cli shows up anywhere in the pack, so this one sticks to flag and
// os.Args[1] the way example/cmd/assistant/main.go sticks to flag.Parse.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"goa.design/bridge/compile"
	"goa.design/bridge/registry"
	"goa.design/bridge/registry/store"
	"goa.design/bridge/registry/store/memory"
	"goa.design/bridge/registry/store/mongostore"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "publish":
		runPublish(os.Args[2:])
	case "check":
		runCheck(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: bridge publish -id ID -version V -source FILE [-mongo-uri URI -mongo-db DB -mongo-collection C]")
	fmt.Fprintln(os.Stderr, "       bridge check -source FILE")
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ExitOnError)
}

func runCheck(args []string) {
	fs := newFlagSet("check")
	sourceF := fs.String("source", "", "path to a bridge DSL source file")
	must(fs.Parse(args))
	if *sourceF == "" {
		usage()
		os.Exit(2)
	}
	src := readFile(*sourceF)
	instrs, err := compile.Compile(src)
	must(err)
	fmt.Printf("ok: %d instructions\n", len(instrs))
}

func runPublish(args []string) {
	fs := newFlagSet("publish")
	idF := fs.String("id", "", "bridge id")
	versionF := fs.String("version", "", "bridge version")
	sourceF := fs.String("source", "", "path to a bridge DSL source file")
	mongoURIF := fs.String("mongo-uri", "", "MongoDB connection URI (omit to use an in-memory store)")
	mongoDBF := fs.String("mongo-db", "bridge", "MongoDB database name")
	mongoCollF := fs.String("mongo-collection", "compiled_bridges", "MongoDB collection name")
	must(fs.Parse(args))
	if *idF == "" || *versionF == "" || *sourceF == "" {
		usage()
		os.Exit(2)
	}

	src := readFile(*sourceF)
	instrs, err := compile.Compile(src)
	must(err)

	st := openStore(*mongoURIF, *mongoDBF, *mongoCollF)
	reg := registry.New(st)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cb, err := reg.Publish(ctx, *idF, *versionF, src, instrs)
	must(err)
	fmt.Printf("published %s@%s checksum=%s\n", cb.ID, cb.Version, cb.Checksum)
}

func openStore(uri, db, collection string) store.Store {
	if uri == "" {
		return memory.New()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	must(err)
	must(client.Ping(ctx, nil))
	return mongostore.New(client.Database(db).Collection(collection))
}

func readFile(path string) string {
	data, err := os.ReadFile(path)
	must(err)
	return string(data)
}

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "bridge:", err)
		os.Exit(1)
	}
}
