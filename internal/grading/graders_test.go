package grading

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/questionbank-api/internal/models"
)

const capitalConfig = `{"options":{"a":{"text":"Paris","correct":true},"b":{"text":"London","correct":false}}}`

func TestMCQSingleCorrect(t *testing.T) {
	engine := newTestEngine()
	q := question(t, models.QuestionTypeMCQ, 10, capitalConfig)

	result := engine.Grade(context.Background(), q, answer("a"))
	require.True(t, result.Correct)
	require.Equal(t, 10.0, result.Score)
	require.Equal(t, "Correct answer!", result.Feedback)

	result = engine.Grade(context.Background(), q, answer("Paris"))
	require.True(t, result.Correct)

	result = engine.Grade(context.Background(), q, answer("b"))
	require.False(t, result.Correct)
	require.Zero(t, result.Score)
	require.Equal(t, "Incorrect answer. The correct answer is: Paris", result.Feedback)

	result = engine.Grade(context.Background(), q, answer(`["a","b"]`))
	require.False(t, result.Correct)
	require.Zero(t, result.Score)
}

func TestMCQMultipleCorrect(t *testing.T) {
	engine := newTestEngine()
	q := question(t, models.QuestionTypeMCQ, 10, `{"options":{
		"a":{"text":"2","correct":true},
		"b":{"text":"3","correct":true},
		"c":{"text":"4","correct":false},
		"d":{"text":"5","correct":true}}}`)

	full := engine.Grade(context.Background(), q, answer(`["a","b","d"]`))
	require.True(t, full.Correct)
	require.Equal(t, 10.0, full.Score)
	require.Equal(t, "Perfect! All answers are correct.", full.Feedback)

	partial := engine.Grade(context.Background(), q, answer("a,b"))
	require.False(t, partial.Correct)
	require.InDelta(t, 6.667, partial.Score, 0.001)
	require.Contains(t, partial.Feedback, "You got 2 out of 3 correct.")
	require.Contains(t, partial.Feedback, "Missing: 5")

	withWrong := engine.Grade(context.Background(), q, answer("a,b,d,c"))
	require.False(t, withWrong.Correct)
	require.LessOrEqual(t, withWrong.Score, full.Score)
	require.Contains(t, withWrong.Feedback, "Incorrect: 4")

	none := engine.Grade(context.Background(), q, answer("c"))
	require.Zero(t, none.Score)
	require.Equal(t, "Incorrect. The correct answers are: 2, 3, 5", none.Feedback)

	repeated := engine.Grade(context.Background(), q, answer(`["a","a","a"]`))
	require.InDelta(t, 10.0/3, repeated.Score, 0.001)
}

func TestMCQAddingCorrectSelectionNeverLowersScore(t *testing.T) {
	engine := newTestEngine()
	q := question(t, models.QuestionTypeMCQ, 9, `{"options":{
		"a":{"text":"x","correct":true},
		"b":{"text":"y","correct":true},
		"c":{"text":"z","correct":true},
		"d":{"text":"w","correct":false}}}`)

	previous := -1.0
	for _, content := range []string{"d", "d,a", "d,a,b", "d,a,b,c"} {
		result := engine.Grade(context.Background(), q, answer(content))
		require.GreaterOrEqual(t, result.Score, previous, content)
		previous = result.Score
	}
}

func TestTrueFalse(t *testing.T) {
	engine := newTestEngine()

	single := question(t, models.QuestionTypeTrueFalse, 2, `{"correctAnswer":true}`)
	require.True(t, engine.Grade(context.Background(), single, answer("True")).Correct)
	wrong := engine.Grade(context.Background(), single, answer("false"))
	require.False(t, wrong.Correct)
	require.Equal(t, "Incorrect answer. The correct answer is: true", wrong.Feedback)

	multi := question(t, models.QuestionTypeTrueFalse, 4, `{"correctAnswer":"true,false,true"}`)
	perfect := engine.Grade(context.Background(), multi, answer("TRUE, false, true"))
	require.True(t, perfect.Correct)
	require.Equal(t, "Perfect! All statements are correct.", perfect.Feedback)

	miss := engine.Grade(context.Background(), multi, answer("true,true,true"))
	require.False(t, miss.Correct)
	require.Zero(t, miss.Score)
	require.Contains(t, miss.Feedback, "Statement 2: Expected 'false', Got 'true'")

	short := engine.Grade(context.Background(), multi, answer("true,false"))
	require.False(t, short.Correct)
	require.Contains(t, short.Feedback, "Statement 3: Expected 'true', Got ''")
}

func TestMatching(t *testing.T) {
	engine := newTestEngine()
	q := question(t, models.QuestionTypeMatching, 6, `{"columnCount":2,"pairs":[
		{"pairNumber":1,"column_1":"Dog","column_2":"Bark"},
		{"pairNumber":2,"column_1":"Cat","column_2":"Meow"},
		{"pairNumber":3,"column_1":"Cow","column_2":"Moo"}]}`)

	full := engine.Grade(context.Background(), q, answer(`{
		"1":{"column_1":"dog","column_2":"bark"},
		"2":{"column_1":"Cat","column_2":"Meow"},
		"3":{"column_1":"Cow","column_2":"Moo"}}`))
	require.True(t, full.Correct)
	require.Equal(t, 6.0, full.Score)

	partial := engine.Grade(context.Background(), q, answer(`{
		"1":{"column_1":"Dog","column_2":"Meow"},
		"2":{"column_1":"Cat","column_2":"Meow"}}`))
	require.False(t, partial.Correct)
	require.Equal(t, 2.0, partial.Score)
	require.Contains(t, partial.Feedback, "Pair 1: Expected 'Dog-Bark', Got 'Dog-Meow'")
	require.Contains(t, partial.Feedback, "Pair 2: Cat - Meow")
	require.Contains(t, partial.Feedback, "Pair 3: (no answer)")

	invalid := engine.Grade(context.Background(), q, answer("dog-bark"))
	require.Zero(t, invalid.Score)
	require.Equal(t, "Invalid answer format. Expected JSON format.", invalid.Feedback)
}

func TestMatchingThreeColumns(t *testing.T) {
	engine := newTestEngine()
	q := question(t, models.QuestionTypeMatching, 2, `{"columnCount":3,"pairs":[
		{"pairNumber":1,"column_1":"H","column_2":"Hydrogen","column_3":"1"}]}`)

	result := engine.Grade(context.Background(), q, answer(`{"1":{"column_1":"H","column_2":"Hydrogen","column_3":"2"}}`))
	require.False(t, result.Correct)
	require.Contains(t, result.Feedback, "Expected 'H-Hydrogen-1', Got 'H-Hydrogen-2'")

	result = engine.Grade(context.Background(), q, answer(`{"1":{"column_1":"H","column_2":"Hydrogen","column_3":1}}`))
	require.True(t, result.Correct)
}

func TestFillInBlank(t *testing.T) {
	engine := newTestEngine()
	q := question(t, models.QuestionTypeFillInBlank, 10, `{"sentence":"The ___ chased the ___","blanks":[
		{"index":1,"correctAnswers":["dog"]},
		{"index":0,"correctAnswers":["cat|feline"]}]}`)

	full := engine.Grade(context.Background(), q, answer(`["feline","dog"]`))
	require.True(t, full.Correct)
	require.Equal(t, 10.0, full.Score)

	half := engine.Grade(context.Background(), q, answer(`{"0":"cat","1":"mouse"}`))
	require.False(t, half.Correct)
	require.Equal(t, 5.0, half.Score)
	require.Contains(t, half.Feedback, "Blank 1: cat")
	require.Contains(t, half.Feedback, "Blank 2: mouse - expected: dog")

	empty := engine.Grade(context.Background(), q, answer(""))
	require.Zero(t, empty.Score)
	require.Equal(t, "Incorrect. The correct answers are: cat or feline, dog", empty.Feedback)

	comma := engine.Grade(context.Background(), q, answer(" CAT , dog "))
	require.True(t, comma.Correct)
}

func TestFillInBlankPositionKey(t *testing.T) {
	engine := newTestEngine()
	q := question(t, models.QuestionTypeFillInBlank, 4, `{"sentence":"___ + ___","blanks":[
		{"position":2,"correctAnswers":["two"]},
		{"position":1,"correctAnswers":["one","uno"]}]}`)

	result := engine.Grade(context.Background(), q, answer("uno,"))
	require.Equal(t, 2.0, result.Score)
	require.Contains(t, result.Feedback, "Blank 2: (empty) - expected: two")
}

func TestRearrange(t *testing.T) {
	engine := newTestEngine()
	q := question(t, models.QuestionTypeRearrange, 3, `{"correctOrder":["first","second","third"]}`)

	ordered := engine.Grade(context.Background(), q, answer(`[{"item":"third","position":3},{"item":"first","position":1},{"item":"second","position":2}]`))
	require.True(t, ordered.Correct)

	swapped := engine.Grade(context.Background(), q, answer("first,third,second"))
	require.False(t, swapped.Correct)
	require.Equal(t, 1.0, swapped.Score)
	require.Contains(t, swapped.Feedback, "Position 1: 'first'")
	require.Contains(t, swapped.Feedback, "Position 2: Expected 'second', Got 'third'")

	short := engine.Grade(context.Background(), q, answer(`["First"]`))
	require.Equal(t, 1.0, short.Score)
}

func TestSlider(t *testing.T) {
	engine := newTestEngine()
	q := question(t, models.QuestionTypeSlider, 10, `{"minValue":0,"maxValue":100,"step":1,"correctValue":50,"unit":"kg"}`)

	exact := engine.Grade(context.Background(), q, answer("50"))
	require.True(t, exact.Correct)
	require.Equal(t, 10.0, exact.Score)
	require.Equal(t, "Correct! Your answer: 50.00kg, Correct answer: 50.00kg. Score: 10.0/10.0", exact.Feedback)

	near := engine.Grade(context.Background(), q, answer("51"))
	require.True(t, near.Correct)
	require.InDelta(t, 8.0, near.Score, 1e-9)
	require.Equal(t, "Correct! Your answer: 51.00kg, Correct answer: 50.00kg. Score: 8.0/10.0", near.Feedback)

	within := engine.Grade(context.Background(), q, answer("52.5"))
	require.True(t, within.Correct)
	require.InDelta(t, 5.0, within.Score, 1e-9)

	partial := engine.Grade(context.Background(), q, answer("53.75"))
	require.False(t, partial.Correct)
	require.InDelta(t, 2.5, partial.Score, 1e-9)
	require.Contains(t, partial.Feedback, "(tolerance: ±2.50kg)")

	outside := engine.Grade(context.Background(), q, answer("101"))
	require.Zero(t, outside.Score)
	require.Equal(t, "Your answer 101.00kg is outside the valid range (0.00 - 100.00kg).", outside.Feedback)

	invalid := engine.Grade(context.Background(), q, answer("fifty"))
	require.Zero(t, invalid.Score)
	require.Equal(t, "Invalid number format. Please provide a numeric value.", invalid.Feedback)
}

func TestSliderScoreDecreasesWithDistance(t *testing.T) {
	engine := newTestEngine()
	q := question(t, models.QuestionTypeSlider, 10, `{"minValue":0,"maxValue":100,"correctValue":40}`)

	previous := 11.0
	for distance := 0; distance <= 10; distance++ {
		result := engine.Grade(context.Background(), q, answer(fmt.Sprintf("%d", 40+distance)))
		require.LessOrEqual(t, result.Score, previous, distance)
		previous = result.Score
	}
	require.Zero(t, engine.Grade(context.Background(), q, answer("-0.5")).Score)
}

func TestSliderNegativeCorrectValue(t *testing.T) {
	engine := newTestEngine()
	q := question(t, models.QuestionTypeSlider, 10, `{"minValue":-200,"maxValue":0,"step":1,"correctValue":-100}`)

	result := engine.Grade(context.Background(), q, answer("-95"))
	require.False(t, result.Correct)
	require.InDelta(t, 3.75, result.Score, 1e-9)
	require.Contains(t, result.Feedback, "(tolerance: ±4.00)")

	edge := engine.Grade(context.Background(), q, answer("-104"))
	require.True(t, edge.Correct)
	require.InDelta(t, 5.0, edge.Score, 1e-9)
}

func TestSliderMissingCorrectValue(t *testing.T) {
	result := newTestEngine().Grade(context.Background(), question(t, models.QuestionTypeSlider, 3, `{"minValue":0}`), answer("1"))
	require.Zero(t, result.Score)
	require.Equal(t, "No correct answer configured for this slider question.", result.Feedback)
}

func TestPuzzle(t *testing.T) {
	engine := newTestEngine()
	q := question(t, models.QuestionTypePuzzle, 4, `{"correctAnswer":["A","B","C","D"]}`)

	require.True(t, engine.Grade(context.Background(), q, answer("A,B,C,D")).Correct)

	caseSensitive := engine.Grade(context.Background(), q, answer("a,B,C,D"))
	require.Equal(t, 3.0, caseSensitive.Score)
	require.Contains(t, caseSensitive.Feedback, "Position 1: Expected A, got a")

	count := engine.Grade(context.Background(), q, answer("A,B"))
	require.Zero(t, count.Score)
	require.Equal(t, "Incorrect number of pieces. Expected 4, got 2.", count.Feedback)

	gap := engine.Grade(context.Background(), question(t, models.QuestionTypePuzzle, 3, `{"correctAnswer":["a"," b","c"]}`), answer("a,,c"))
	require.False(t, gap.Correct)
	require.InDelta(t, 2.0, gap.Score, 1e-9)
	require.Contains(t, gap.Feedback, "Position 2: Expected b, got ")

	padded := engine.Grade(context.Background(), question(t, models.QuestionTypePuzzle, 3, `{"correctAnswer":["a"," b","c"]}`), answer("a, b ,c"))
	require.True(t, padded.Correct)

	missing := engine.Grade(context.Background(), question(t, models.QuestionTypePuzzle, 4, `{}`), answer("A"))
	require.Equal(t, "No correct puzzle configuration found.", missing.Feedback)
}

func TestSelectOnPhoto(t *testing.T) {
	engine := newTestEngine()
	q := question(t, models.QuestionTypeSelectOnPhoto, 10, `{"gridRows":3,"gridCols":3,"selectedBlocks":["r1c1","r2c2"]}`)

	perfect := engine.Grade(context.Background(), q, answer(`["r2c2","r1c1"]`))
	require.True(t, perfect.Correct)
	require.Equal(t, "Perfect! All blocks selected correctly.", perfect.Feedback)

	partial := engine.Grade(context.Background(), q, answer(`["r1c1"]`))
	require.Equal(t, 5.0, partial.Score)
	require.Contains(t, partial.Feedback, "Missing: r2c2")

	penalised := engine.Grade(context.Background(), q, answer(`["r1c1","r3c3"]`))
	require.Zero(t, penalised.Score)
	require.False(t, penalised.Correct)

	none := engine.Grade(context.Background(), q, answer(`["r3c3"]`))
	require.Equal(t, "No correct blocks selected.", none.Feedback)

	invalid := engine.Grade(context.Background(), q, answer("r1c1"))
	require.Equal(t, "Invalid answer format", invalid.Feedback)
}
