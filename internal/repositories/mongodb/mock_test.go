package mongodb

import (
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func mockOptions() *mtest.Options {
	return mtest.NewOptions().ClientType(mtest.Mock)
}

// sentCommand pops the next command the client sent and checks its name
func sentCommand(mt *mtest.T, name string) bson.Raw {
	evt := mt.GetStartedEvent()
	require.NotNil(mt, evt, "no %s command was sent", name)
	require.Equal(mt, name, evt.CommandName)
	return evt.Command
}

// updateSpec returns the filter and update document of an update command
func updateSpec(mt *mtest.T) (filter, update bson.Raw) {
	cmd := sentCommand(mt, "update")
	return cmd.Lookup("updates", "0", "q").Document(), cmd.Lookup("updates", "0", "u").Document()
}

// updateResult is a server reply to an update command matching n documents
func updateResult(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func keysOf(t require.TestingT, doc bson.Raw) []string {
	elems, err := doc.Elements()
	require.NoError(t, err)
	keys := make([]string, 0, len(elems))
	for _, e := range elems {
		keys = append(keys, e.Key())
	}
	return keys
}
