package parsing

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pythonSample = `import os
import numpy as np
from auth import login, logout
from ..utils import helper

MAX_RETRIES = 3

class UserService(BaseService):
    def get_user(self, user_id):
        return self.db.find(user_id)

    async def refresh(self):
        pass

def main():
    svc = UserService()
    svc.get_user(1)
`

func TestParsePythonFunctions(t *testing.T) {
	parser := NewParser(1 << 20)

	result, err := parser.Parse(context.Background(), "app/service.py", []byte(pythonSample))
	require.NoError(t, err)
	assert.Equal(t, "python", result.Language)

	byName := make(map[string]FunctionDef)
	for _, fn := range result.Functions {
		byName[fn.Name] = fn
	}
	require.Len(t, result.Functions, 3)

	getUser := byName["get_user"]
	assert.Equal(t, "UserService", getUser.ParentClass)
	assert.True(t, getUser.IsMethod)
	assert.Equal(t, []string{"self", "user_id"}, getUser.Parameters)
	assert.False(t, getUser.IsAsync)

	refresh := byName["refresh"]
	assert.True(t, refresh.IsAsync)
	assert.True(t, refresh.IsMethod)

	main := byName["main"]
	assert.False(t, main.IsMethod)
	assert.Empty(t, main.ParentClass)
}

func TestParsePythonClasses(t *testing.T) {
	parser := NewParser(1 << 20)

	result, err := parser.Parse(context.Background(), "app/service.py", []byte(pythonSample))
	require.NoError(t, err)

	require.Len(t, result.Classes, 1)
	class := result.Classes[0]
	assert.Equal(t, "UserService", class.Name)
	assert.Equal(t, []string{"BaseService"}, class.BaseClasses)
	assert.Greater(t, class.EndLine, class.StartLine)
}

func TestParsePythonImports(t *testing.T) {
	parser := NewParser(1 << 20)

	result, err := parser.Parse(context.Background(), "app/service.py", []byte(pythonSample))
	require.NoError(t, err)

	byModule := make(map[string]ImportDecl)
	for _, imp := range result.Imports {
		byModule[imp.Module] = imp
	}
	require.Len(t, result.Imports, 4)

	assert.False(t, byModule["os"].FromImport)

	np := byModule["numpy"]
	assert.Equal(t, "np", np.Alias)

	auth := byModule["auth"]
	assert.True(t, auth.FromImport)
	assert.Equal(t, []string{"login", "logout"}, auth.Names)

	rel := byModule["..utils"]
	assert.True(t, rel.FromImport)
	assert.Equal(t, []string{"helper"}, rel.Names)
}

func TestParsePythonVariables(t *testing.T) {
	parser := NewParser(1 << 20)

	result, err := parser.Parse(context.Background(), "app/service.py", []byte(pythonSample))
	require.NoError(t, err)

	require.Len(t, result.Variables, 1)
	assert.Equal(t, "MAX_RETRIES", result.Variables[0].Name)
	assert.True(t, result.Variables[0].IsConstant)
	assert.Equal(t, "global", result.Variables[0].Scope)
}

const tsSample = `import { Component } from './components';
import axios from 'axios';

const TIMEOUT = 5000;

export class ApiClient extends BaseClient {
    fetchUser(id) {
        return axios.get('/users/' + id);
    }
}

const helper = (x) => x * 2;

function run() {
    helper(1);
}
`

func TestParseTypeScript(t *testing.T) {
	parser := NewParser(1 << 20)

	result, err := parser.Parse(context.Background(), "src/api.ts", []byte(tsSample))
	require.NoError(t, err)
	assert.Equal(t, "typescript", result.Language)

	names := make([]string, 0, len(result.Functions))
	for _, fn := range result.Functions {
		names = append(names, fn.Name)
	}
	assert.ElementsMatch(t, []string{"fetchUser", "helper", "run"}, names)

	require.Len(t, result.Classes, 1)
	assert.Equal(t, "ApiClient", result.Classes[0].Name)
	assert.Equal(t, []string{"BaseClient"}, result.Classes[0].BaseClasses)

	byModule := make(map[string]ImportDecl)
	for _, imp := range result.Imports {
		byModule[imp.Module] = imp
	}
	require.Len(t, result.Imports, 2)
	assert.Equal(t, []string{"Component"}, byModule["./components"].Names)
	assert.Equal(t, []string{"axios"}, byModule["axios"].Names)

	require.Len(t, result.Variables, 1)
	assert.Equal(t, "TIMEOUT", result.Variables[0].Name)
	assert.True(t, result.Variables[0].IsConstant)
}

func TestParseGoGeneric(t *testing.T) {
	parser := NewParser(1 << 20)

	src := `package main

func Add(a, b int) int { return a + b }

func (s *Server) Start() error { return nil }
`
	result, err := parser.Parse(context.Background(), "main.go", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, "go", result.Language)

	require.Len(t, result.Functions, 2)
	assert.Equal(t, "Add", result.Functions[0].Name)
	assert.False(t, result.Functions[0].IsMethod)
	assert.Equal(t, "Start", result.Functions[1].Name)
	assert.True(t, result.Functions[1].IsMethod)
}

func TestParseSkipsUnsupported(t *testing.T) {
	parser := NewParser(1 << 20)

	_, err := parser.Parse(context.Background(), "README.txt", []byte("hello"))
	assert.ErrorIs(t, err, ErrSkipped)
}

func TestParseSkipsOversized(t *testing.T) {
	parser := NewParser(64)

	big := strings.Repeat("x = 1\n", 100)
	_, err := parser.Parse(context.Background(), "big.py", []byte(big))
	assert.ErrorIs(t, err, ErrSkipped)
}

func TestDetectLanguage(t *testing.T) {
	parser := NewParser(1 << 20)

	assert.Equal(t, "python", parser.DetectLanguage("a/b.py"))
	assert.Equal(t, "tsx", parser.DetectLanguage("ui/App.tsx"))
	assert.Equal(t, "ruby", parser.DetectLanguage("lib/task.rake"))
	assert.Equal(t, "", parser.DetectLanguage("notes.txt"))
	assert.True(t, parser.Supports("x.cpp"))
	assert.False(t, parser.Supports("x.bin"))
}
