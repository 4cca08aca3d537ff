package io

// Queue is a scripted console: characters are read from Input in order,
// and everything written is appended to Output.
type Queue struct {
	Input  []byte
	Output []byte
}

var _ Console = &Queue{}

// Reset discards pending input and captured output.
func (qc *Queue) Reset() {
	qc.Input = nil
	qc.Output = nil
}

// ReadChar pops the next character from the input queue.
func (qc *Queue) ReadChar() (ch byte, err error) {
	if len(qc.Input) == 0 {
		err = ErrInputEmpty
		return
	}

	ch = qc.Input[0]
	qc.Input = qc.Input[1:]
	return
}

// WriteChar appends a character to the output.
func (qc *Queue) WriteChar(ch byte) error {
	qc.Output = append(qc.Output, ch)
	return nil
}

// WriteString appends a string to the output.
func (qc *Queue) WriteString(str string) error {
	qc.Output = append(qc.Output, str...)
	return nil
}

// SendKeys appends characters to the input queue.
func (qc *Queue) SendKeys(keys string) {
	qc.Input = append(qc.Input, keys...)
}

// Display returns the captured output as a string.
func (qc *Queue) Display() string {
	return string(qc.Output)
}
