package consolidation

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadReviewCSV(t *testing.T) {
	input := "\ufeffgroup_id,masterproductid,productname,is_canonical\n" +
		"1,12,קולה זירו,\n" +
		"1,10,\"קוקה קולה זירו, בקבוק\",true\n" +
		"\n" +
		"2,30,במבה,false\n"

	groups, err := ReadReviewCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, []Member{
		{ProductID: 12, DisplayName: "קולה זירו"},
		{ProductID: 10, DisplayName: "קוקה קולה זירו, בקבוק", IsCanonical: true},
	}, groups[1])
	assert.Equal(t, []Member{{ProductID: 30, DisplayName: "במבה"}}, groups[2])
}

func TestReadReviewCSV_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"missing column": "group_id,productname\n1,x\n",
		"bad group id":   "group_id,masterproductid,productname\nx,1,a\n",
		"bad flag":       "group_id,masterproductid,productname,is_canonical\n1,1,a,maybe\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadReviewCSV(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestWriteReviewCSV_ReadBack(t *testing.T) {
	var buf bytes.Buffer
	err := WriteReviewCSV(&buf, []ReviewGroup{
		{ID: 1, Members: []Member{{ProductID: 3, DisplayName: "נוטלה"}, {ProductID: 9, DisplayName: "נוטלה, 750 גרם"}}},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "group_id,masterproductid,productname\n"))

	groups, err := ReadReviewCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, []Member{{ProductID: 3, DisplayName: "נוטלה"}, {ProductID: 9, DisplayName: "נוטלה, 750 גרם"}}, groups[1])
}
